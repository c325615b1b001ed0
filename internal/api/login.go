package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type LoginStatus string

const (
	LoginSuccess          LoginStatus = "success"
	LoginNeedVerification LoginStatus = "need_verification"
	LoginNeed2FA          LoginStatus = "need_2fa"
)

// LoginTokens is the credential set a successful login returns.
type LoginTokens struct {
	Access       string
	Refresh      string
	Username     string
	ProfileImage string
}

// LoginOutcome is the normalized login response. The backend signals
// "2FA required" through two different conventions (a legacy detail
// string and a newer message field); both are folded into Need2FA
// here and nowhere else.
type LoginOutcome struct {
	Status  LoginStatus
	Tokens  LoginTokens // only when Status == LoginSuccess
	Message string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginWire struct {
	Access            string `json:"access"`
	Refresh           string `json:"refresh"`
	UserName          string `json:"userName"`
	UserImage         string `json:"userImage"`
	Detail            string `json:"detail"`
	Message           string `json:"message"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

// Login posts credentials. Domain branches (not verified, 2FA) come
// back as outcomes, not errors; only transport and 5xx failures are
// errors.
func (c *Client) Login(ctx context.Context, username string, password string) (LoginOutcome, error) {
	req, err := jsonRequest(ctx, http.MethodPost, c.baseURL+"/users/login/", loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return LoginOutcome{}, err
	}

	raw, err := c.send(req, false)
	if err != nil {
		// 401 carries the "not verified" detail as an error body.
		if outcome, ok := normalizeLogin(raw); ok {
			return outcome, nil
		}
		return LoginOutcome{}, err
	}

	if outcome, ok := normalizeLogin(raw); ok {
		return outcome, nil
	}
	return LoginOutcome{}, &APIError{StatusCode: http.StatusOK, Message: "unrecognized login response"}
}

// normalizeLogin is the single decode point for the login response
// shape. Returns ok=false when the body matches no known convention.
func normalizeLogin(raw []byte) (LoginOutcome, bool) {
	var w loginWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return LoginOutcome{}, false
	}

	if w.Access != "" {
		return LoginOutcome{
			Status: LoginSuccess,
			Tokens: LoginTokens{
				Access:       w.Access,
				Refresh:      w.Refresh,
				Username:     w.UserName,
				ProfileImage: w.UserImage,
			},
		}, true
	}

	if strings.EqualFold(strings.TrimSpace(w.Detail), "account not verified") {
		return LoginOutcome{Status: LoginNeedVerification, Message: w.Detail}, true
	}

	// Legacy convention: detail mentions the 2FA code. Newer
	// convention: message does. Accept both until the backend
	// settles on one.
	if mentions2FA(w.Detail) || mentions2FA(w.Message) || w.TwoFactorRequired {
		msg := w.Message
		if msg == "" {
			msg = w.Detail
		}
		return LoginOutcome{Status: LoginNeed2FA, Message: msg}, true
	}

	return LoginOutcome{}, false
}

func mentions2FA(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "2fa") || strings.Contains(ls, "two factor") || strings.Contains(ls, "two-factor")
}

type loginStep2Request struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// LoginStep2 completes a 2FA login with the emailed code.
func (c *Client) LoginStep2(ctx context.Context, email string, code string) (LoginTokens, error) {
	var w loginWire
	if err := c.doJSON(ctx, http.MethodPost, "/users/login/step2/", loginStep2Request{Email: email, Code: code}, false, &w); err != nil {
		return LoginTokens{}, err
	}
	return LoginTokens{
		Access:       w.Access,
		Refresh:      w.Refresh,
		Username:     w.UserName,
		ProfileImage: w.UserImage,
	}, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// RefreshToken trades a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var resp refreshResponse
	if err := c.doJSON(ctx, http.MethodPost, "/token/refresh/", refreshRequest{Refresh: refresh}, false, &resp); err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "refresh response missing access token"}
	}
	return resp.Access, nil
}
