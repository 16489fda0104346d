package token

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/huykn/teamup-client/cache"
)

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestSetAndGetTokens(t *testing.T) {
	m := NewManager(NewMemoryCookieStore())
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.GetToken())

	require.NoError(t, m.SetTokens("access", "refresh"))
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "access", m.GetToken())
	assert.Equal(t, "refresh", m.GetRefreshToken())

	require.NoError(t, m.SetTokens("access-2", ""))
	assert.Equal(t, "access-2", m.GetToken())
	assert.Equal(t, "refresh", m.GetRefreshToken(), "empty refresh keeps the stored one")
}

func TestClearTokensIsIdempotent(t *testing.T) {
	m := NewManager(NewMemoryCookieStore())
	m.ClearTokens()

	require.NoError(t, m.SetToken("access"))
	require.NoError(t, m.SetRefreshToken("refresh"))
	m.ClearTokens()
	m.ClearTokens()

	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.GetRefreshToken())
}

type stuckStore struct {
	*MemoryCookieStore
	failOn string
}

func (s stuckStore) DeleteCookie(name string) error {
	if name == s.failOn {
		return errors.New("disk full")
	}
	return s.MemoryCookieStore.DeleteCookie(name)
}

func TestClearTokensLogsStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	store := stuckStore{MemoryCookieStore: NewMemoryCookieStore(), failOn: AccessTokenCookie}
	m := NewManager(store, WithLogger(cache.NewZapLogger(zap.New(core))))
	require.NoError(t, m.SetTokens("access", "refresh"))

	m.ClearTokens()

	assert.Empty(t, m.GetRefreshToken(), "the refresh token is still deleted")
	entries := logs.FilterMessage("Token: failed to delete cookie").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, AccessTokenCookie, entries[0].ContextMap()["cookie"])
}

func TestCookieAttributes(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryCookieStore()
	store.now = func() time.Time { return now }

	m := NewManager(store, WithSecure(true), WithClock(func() time.Time { return now }))
	require.NoError(t, m.SetToken("access"))

	c, ok := store.Cookie(AccessTokenCookie)
	require.True(t, ok)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, now.Add(DefaultExpiry), c.Expires)
}

func TestCookieExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewMemoryCookieStore()
	store.now = clock

	m := NewManager(store, WithExpiry(time.Hour), WithClock(clock))
	require.NoError(t, m.SetTokens("access", "refresh"))

	now = now.Add(59 * time.Minute)
	assert.True(t, m.IsAuthenticated())

	now = now.Add(time.Minute)
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.GetRefreshToken())
}

func TestExpiredJWTIsNotAuthenticated(t *testing.T) {
	now := time.Now()
	m := NewManager(NewMemoryCookieStore())

	require.NoError(t, m.SetToken(signedJWT(t, now.Add(time.Hour))))
	assert.True(t, m.IsAuthenticated())

	require.NoError(t, m.SetToken(signedJWT(t, now.Add(-time.Minute))))
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.GetToken())
}

func TestOpaqueTokenIsNotParsed(t *testing.T) {
	m := NewManager(NewMemoryCookieStore())
	require.NoError(t, m.SetToken("not.a.jwt"))
	assert.Equal(t, "not.a.jwt", m.GetToken())
}

func TestFileCookieStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teamup", "cookies")
	store, err := NewFileCookieStore(path)
	require.NoError(t, err)

	m := NewManager(store)
	require.NoError(t, m.SetTokens("access", "refresh"))

	reopened, err := NewFileCookieStore(path)
	require.NoError(t, err)
	m2 := NewManager(reopened)
	assert.Equal(t, "access", m2.GetToken())
	assert.Equal(t, "refresh", m2.GetRefreshToken())

	m2.ClearTokens()
	assert.NoFileExists(t, path)
	assert.False(t, m.IsAuthenticated())
	m2.ClearTokens()
}

func TestFileCookieStoreExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store, err := NewFileCookieStore(filepath.Join(t.TempDir(), "cookies"))
	require.NoError(t, err)
	store.now = func() time.Time { return now }

	require.NoError(t, store.SetCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a", Expires: now.Add(time.Second)}))
	_, ok := store.Cookie(AccessTokenCookie)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = store.Cookie(AccessTokenCookie)
	assert.False(t, ok)
}

func TestDefaultCookiePath(t *testing.T) {
	t.Setenv("TEAMUP_HOME", "/tmp/teamup-home")
	p, err := DefaultCookiePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/teamup-home", "cookies"), p)
}
