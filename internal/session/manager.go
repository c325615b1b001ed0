package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/domain/model"
	"github.com/Donatto293/agroconexion-client/internal/tokenstore"
)

// Status is the tri-state session view. Unknown means "we hold
// tokens but could not verify them yet" (e.g. the profile fetch hit a
// network error); the UI should treat it as stale-but-logged-in
// rather than bouncing the user to the login screen.
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

var (
	// ErrNoRefreshToken means a refresh was requested with nothing to
	// refresh from; the session has already been torn down.
	ErrNoRefreshToken = errors.New("session: no refresh token")
)

// refreshLeeway is how close to expiry an access token may get before
// EnsureFreshToken refreshes it proactively.
const refreshLeeway = 30 * time.Second

// TokenWatcher is called whenever the access-token identity changes.
// It receives the new token, or "" on logout. Profile-only updates
// that keep the same token do not fire it.
type TokenWatcher func(token string)

// Manager is the single source of truth for "who is logged in" and
// the only writer of auth tokens. It implements api.UnauthorizedHandler
// so any 401 anywhere tears the session down exactly once.
type Manager struct {
	store  tokenstore.Store
	client *api.Client
	logger *log.Logger

	mu         sync.Mutex
	user       *model.User
	profile    *model.UserProfile
	status     Status
	generation uint64
	watchers   []TokenWatcher
}

// NewManager wires the manager and its HTTP client together. The
// client factory receives the manager's token source and 401 handler,
// so the dependency is fixed at construction instead of registered
// through a global later.
func NewManager(store tokenstore.Store, newClient func(api.TokenSource, api.UnauthorizedHandler) *api.Client, logger *log.Logger) *Manager {
	m := &Manager{
		store:  store,
		logger: logger,
		status: StatusUnauthenticated,
	}
	m.client = newClient(m.AccessToken, m)
	return m
}

// Client exposes the shared HTTP client for the stores.
func (m *Manager) Client() *api.Client {
	return m.client
}

// AccessToken returns the current in-memory access token, or "".
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return ""
	}
	return m.user.AccessToken
}

// User returns a copy of the minimal session view, or nil.
func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Profile returns a copy of the full profile, or nil while it has not
// been fetched yet.
func (m *Manager) Profile() *model.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnTokenChange registers a watcher. Registration order is the
// notification order.
func (m *Manager) OnTokenChange(fn TokenWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// LoginResult reports which branch the login took. Transport and
// server failures come back as an error instead.
type LoginResult struct {
	Status  api.LoginStatus
	Message string
}

// Login authenticates with username/password. On success the tokens
// are persisted first and the in-memory session is then derived via
// LoadSession, so there is exactly one path that builds session state.
func (m *Manager) Login(ctx context.Context, username string, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, errors.New("session: username and password are required")
	}

	outcome, err := m.client.Login(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}

	switch outcome.Status {
	case api.LoginNeedVerification, api.LoginNeed2FA:
		// No tokens yet; nothing to persist.
		return LoginResult{Status: outcome.Status, Message: outcome.Message}, nil
	}

	if err := m.persistTokens(outcome.Tokens); err != nil {
		return LoginResult{}, err
	}
	if err := m.LoadSession(ctx); err != nil {
		m.logf("login: session load after login: %v", err)
	}
	return LoginResult{Status: api.LoginSuccess}, nil
}

// LoginStep2 completes a 2FA login with the emailed code.
func (m *Manager) LoginStep2(ctx context.Context, email string, code string) error {
	tokens, err := m.client.LoginStep2(ctx, email, code)
	if err != nil {
		return err
	}
	if err := m.persistTokens(tokens); err != nil {
		return err
	}
	if err := m.LoadSession(ctx); err != nil {
		m.logf("login step2: session load: %v", err)
	}
	return nil
}

func (m *Manager) persistTokens(tok api.LoginTokens) error {
	if err := m.store.Set(tokenstore.KeyAccessToken, tok.Access); err != nil {
		return err
	}
	if err := m.store.Set(tokenstore.KeyRefreshToken, tok.Refresh); err != nil {
		return err
	}
	if tok.Username != "" {
		if err := m.store.Set(tokenstore.KeyUsername, tok.Username); err != nil {
			return err
		}
	}
	if tok.ProfileImage != "" {
		if err := m.store.Set(tokenstore.KeyProfileImage, tok.ProfileImage); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession restores the session from the token store. Without a
// persisted access token it stays logged out and never touches the
// network. With one, it verifies against /users/my-info/:
//   - 401/403 → hard logout (tokens cleared)
//   - transient failure → cached minimal session kept, status Unknown,
//     persisted tokens untouched
func (m *Manager) LoadSession(ctx context.Context) error {
	access, err := m.store.Get(tokenstore.KeyAccessToken)
	if err != nil || access == "" {
		m.apply(nil, nil, StatusUnauthenticated)
		return nil
	}

	// Minimal view from cache first, so the UI has a name and avatar
	// while the profile fetch is in flight.
	cached := &model.User{
		AccessToken:  access,
		RefreshToken: tokenstore.GetOr(m.store, tokenstore.KeyRefreshToken, ""),
		Username:     tokenstore.GetOr(m.store, tokenstore.KeyUsername, ""),
		ProfileImage: tokenstore.GetOr(m.store, tokenstore.KeyProfileImage, ""),
		Email:        tokenstore.GetOr(m.store, tokenstore.KeyEmail, ""),
	}
	m.apply(cached, nil, StatusUnknown)

	gen := m.currentGeneration()

	profile, err := m.client.MyInfo(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			// The 401 interceptor has already run Logout; make the
			// teardown explicit for the 403 case too.
			_ = m.Logout(ctx)
			return err
		}
		// Transient: keep the cached view, flag it unverified.
		m.logf("load session: profile fetch failed, keeping cached session: %v", err)
		return err
	}

	// A logout (or new login) may have raced the fetch; stale results
	// must not resurrect a torn-down session.
	if !m.generationIs(gen) {
		return nil
	}

	merged := mergeUser(cached, profile)
	m.selfHeal(merged, profile)
	m.apply(merged, profile, StatusAuthenticated)
	return nil
}

// mergeUser overlays backend profile fields onto the cached minimal
// view. Backend wins; cache only fills gaps.
func mergeUser(cached *model.User, p *model.UserProfile) *model.User {
	u := *cached
	if p.Username != "" {
		u.Username = p.Username
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	if p.ProfileImage != "" {
		u.ProfileImage = p.ProfileImage
	}
	return &u
}

// selfHeal writes merged fields back so the local cache converges on
// what the backend holds.
func (m *Manager) selfHeal(u *model.User, p *model.UserProfile) {
	set := func(key, val string) {
		if val == "" {
			return
		}
		if err := m.store.Set(key, val); err != nil {
			m.logf("load session: cache write %s: %v", key, err)
		}
	}
	set(tokenstore.KeyUsername, u.Username)
	set(tokenstore.KeyEmail, u.Email)
	set(tokenstore.KeyProfileImage, u.ProfileImage)
	set(tokenstore.KeyPhoneNumber, p.PhoneNumber)
	set(tokenstore.KeyAddress, p.Address)
	if p.TwoFactorEnabled {
		set(tokenstore.KeyTwoFactor, "true")
	}
}

// RefreshAccessToken trades the persisted refresh token for a new
// access token. Any failure tears the session down; there is no
// silent retry loop.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	refresh, err := m.store.Get(tokenstore.KeyRefreshToken)
	if err != nil || refresh == "" {
		_ = m.Logout(ctx)
		return "", ErrNoRefreshToken
	}

	access, err := m.client.RefreshToken(ctx, refresh)
	if err != nil {
		_ = m.Logout(ctx)
		return "", err
	}

	if err := m.store.Set(tokenstore.KeyAccessToken, access); err != nil {
		return "", err
	}

	m.mu.Lock()
	var user *model.User
	if m.user != nil {
		u := *m.user
		u.AccessToken = access
		user = &u
	}
	status := m.status
	m.mu.Unlock()

	if user != nil {
		m.apply(user, m.Profile(), status)
	}
	return access, nil
}

// EnsureFreshToken refreshes the access token when it is expired or
// about to expire. The token is only inspected, not verified: the
// backend owns verification, the client just reads exp.
func (m *Manager) EnsureFreshToken(ctx context.Context) error {
	tok := m.AccessToken()
	if tok == "" {
		return ErrNoRefreshToken
	}
	if !tokenExpiring(tok, time.Now()) {
		return nil
	}
	_, err := m.RefreshAccessToken(ctx)
	return err
}

func tokenExpiring(raw string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		// Unparseable token: let the backend reject it.
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return now.Add(refreshLeeway).After(claims.ExpiresAt.Time)
}

// Logout clears the in-memory session and every persisted auth key.
// Idempotent and safe to call from concurrent 401 handlers.
func (m *Manager) Logout(ctx context.Context) error {
	m.bumpGeneration()
	if err := m.store.Clear(); err != nil {
		m.logf("logout: clear token store: %v", err)
	}
	m.apply(nil, nil, StatusUnauthenticated)
	return nil
}

// HandleUnauthorized implements api.UnauthorizedHandler.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	m.logf("received 401, dropping session")
	_ = m.Logout(ctx)
}

// UpdateProfile sends changed fields and then re-derives the session
// through LoadSession, so a partial-field response cannot leave the
// cache and the backend disagreeing.
func (m *Manager) UpdateProfile(ctx context.Context, fields map[string]string) (*model.UserProfile, error) {
	if len(fields) == 0 {
		return nil, errors.New("session: no fields to update")
	}
	if _, err := m.client.UpdateProfile(ctx, fields); err != nil {
		return nil, err
	}
	if err := m.LoadSession(ctx); err != nil {
		return nil, err
	}
	return m.Profile(), nil
}

// apply swaps the session state and notifies watchers when the
// access-token identity changed. Watchers run outside the lock: they
// call back into the manager (token source) and the stores.
func (m *Manager) apply(user *model.User, profile *model.UserProfile, status Status) {
	m.mu.Lock()
	oldToken := ""
	if m.user != nil {
		oldToken = m.user.AccessToken
	}
	newToken := ""
	if user != nil {
		newToken = user.AccessToken
	}
	m.user = user
	m.profile = profile
	m.status = status
	watchers := make([]TokenWatcher, len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	if oldToken == newToken {
		return
	}
	for _, fn := range watchers {
		fn(newToken)
	}
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Manager) generationIs(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

func (m *Manager) bumpGeneration() {
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
