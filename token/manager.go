// Package token owns the persisted access and refresh tokens.
package token

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/huykn/teamup-client/cache"
)

const (
	// AccessTokenCookie is the cookie holding the access token.
	AccessTokenCookie = "authToken"
	// RefreshTokenCookie is the cookie holding the refresh token.
	RefreshTokenCookie = "refreshToken"
	// DefaultExpiry is how long written tokens are kept.
	DefaultExpiry = 7 * 24 * time.Hour
)

// Option configures a Manager.
type Option func(*Manager)

// WithSecure marks written cookies Secure. Set it when the API is served
// over https.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithExpiry overrides the cookie lifetime.
func WithExpiry(d time.Duration) Option {
	return func(m *Manager) { m.expiry = d }
}

// WithLogger sets the logger for failures that cannot be returned.
func WithLogger(l cache.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager reads and writes the token pair. IsAuthenticated is a local check
// only; a revoked token keeps reading as present until a request comes back
// with 401 and the HTTP client clears it.
type Manager struct {
	mu     sync.Mutex
	store  CookieStore
	secure bool
	expiry time.Duration
	now    func() time.Time
	parser *jwt.Parser
	logger cache.Logger
}

// NewManager creates a manager over store.
func NewManager(store CookieStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		expiry: DefaultExpiry,
		now:    time.Now,
		parser: jwt.NewParser(),
		logger: cache.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetToken returns the access token, or "" when it is absent or expired.
// A token that parses as a JWT with a past exp claim counts as expired.
func (m *Manager) GetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.read(AccessTokenCookie)
	if v == "" || m.jwtExpired(v) {
		return ""
	}
	return v
}

// GetRefreshToken returns the refresh token, or "" when it is absent or expired.
func (m *Manager) GetRefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read(RefreshTokenCookie)
}

// SetToken stores the access token.
func (m *Manager) SetToken(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(AccessTokenCookie, value)
}

// SetRefreshToken stores the refresh token.
func (m *Manager) SetRefreshToken(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(RefreshTokenCookie, value)
}

// SetTokens stores both tokens. An empty refresh token leaves the stored
// one untouched.
func (m *Manager) SetTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.write(AccessTokenCookie, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return m.write(RefreshTokenCookie, refresh)
}

// ClearTokens deletes both tokens. It is safe to call repeatedly and when
// nothing was stored. A store failure is logged; the other token is still
// deleted.
func (m *Manager) ClearTokens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		if err := m.store.DeleteCookie(name); err != nil {
			m.logger.Error("Token: failed to delete cookie", "cookie", name, "error", err)
		}
	}
}

// IsAuthenticated reports whether an access token is present.
func (m *Manager) IsAuthenticated() bool {
	return m.GetToken() != ""
}

func (m *Manager) read(name string) string {
	c, ok := m.store.Cookie(name)
	if !ok {
		return ""
	}
	return c.Value
}

func (m *Manager) write(name, value string) error {
	return m.store.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  m.now().Add(m.expiry),
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) jwtExpired(raw string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := m.parser.ParseUnverified(raw, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !m.now().Before(claims.ExpiresAt.Time)
}
