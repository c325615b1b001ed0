package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// TokenSource returns the current access token, or "" when logged out.
type TokenSource func() string

// UnauthorizedHandler is told about 401 responses on authenticated
// requests. It is injected at construction so there is no late-bound
// global registration to get wrong at init time.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context)
}

// APIError is any non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err is a 401/403 response.
func IsAuthError(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == status
}

// Client talks to the AgroConexion backend. One instance is shared by
// the session manager and the stores.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, onUnauthorized UnauthorizedHandler) *Client {
	return &Client{
		baseURL:        trimSlash(baseURL),
		http:           &http.Client{Timeout: timeout},
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(ctx context.Context, method string, url string, body any) (*http.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("api: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON sends a JSON request and decodes a 2xx response into out
// (out may be nil). withAuth=false is only for login and refresh.
func (c *Client) doJSON(ctx context.Context, method string, path string, body any, withAuth bool, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.send(req, withAuth)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

// send attaches headers, executes, and maps non-2xx to *APIError.
// A 401 on an authenticated request is reported to the unauthorized
// handler before the error is returned, so the caller's own error
// path still runs.
func (c *Client) send(req *http.Request, withAuth bool) ([]byte, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	if withAuth {
		if tok := c.tokens(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(raw),
		RequestID:  requestID,
	}

	if withAuth && resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized.HandleUnauthorized(req.Context())
	}

	return raw, apiErr
}

func decodeInto(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body. The
// backend is inconsistent: sometimes {detail}, sometimes {message},
// sometimes {error}.
func errorMessage(raw []byte) string {
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail != "":
			return body.Detail
		case body.Message != "":
			return body.Message
		case body.Error != "":
			return body.Error
		}
	}
	if len(raw) == 0 {
		return "empty response"
	}
	return string(raw)
}
