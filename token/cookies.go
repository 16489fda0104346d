package token

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CookieStore persists named cookies. Implementations must not return a
// cookie whose Expires is in the past.
type CookieStore interface {
	Cookie(name string) (*http.Cookie, bool)
	SetCookie(c *http.Cookie) error
	DeleteCookie(name string) error
}

// MemoryCookieStore keeps cookies in memory.
type MemoryCookieStore struct {
	mu      sync.RWMutex
	cookies map[string]http.Cookie
	now     func() time.Time
}

// NewMemoryCookieStore creates an empty in-memory cookie store.
func NewMemoryCookieStore() *MemoryCookieStore {
	return &MemoryCookieStore{
		cookies: make(map[string]http.Cookie),
		now:     time.Now,
	}
}

// Cookie returns the named cookie unless it is missing or expired.
func (s *MemoryCookieStore) Cookie(name string) (*http.Cookie, bool) {
	s.mu.RLock()
	c, ok := s.cookies[name]
	s.mu.RUnlock()
	if !ok || expired(c, s.now()) {
		return nil, false
	}
	return &c, true
}

// SetCookie stores a copy of c.
func (s *MemoryCookieStore) SetCookie(c *http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[c.Name] = *c
	return nil
}

// DeleteCookie removes the named cookie; missing cookies are ignored.
func (s *MemoryCookieStore) DeleteCookie(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cookies, name)
	return nil
}

// storedCookie is the on-disk form of a cookie.
type storedCookie struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Path     string        `json:"path,omitempty"`
	Expires  time.Time     `json:"expires"`
	Secure   bool          `json:"secure"`
	SameSite http.SameSite `json:"same_site"`
}

// FileCookieStore keeps cookies in a JSON file readable only by the owner.
type FileCookieStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileCookieStore stores cookies at path, creating its directory.
func NewFileCookieStore(path string) (*FileCookieStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cookie directory: %w", err)
	}
	return &FileCookieStore{path: path, now: time.Now}, nil
}

// DefaultCookiePath returns ~/.teamup/cookies, or $TEAMUP_HOME/cookies when set.
func DefaultCookiePath() (string, error) {
	home := os.Getenv("TEAMUP_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".teamup")
	}
	return filepath.Join(home, "cookies"), nil
}

// Cookie returns the named cookie unless it is missing or expired.
func (s *FileCookieStore) Cookie(name string) (*http.Cookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, false
	}
	sc, ok := all[name]
	if !ok {
		return nil, false
	}
	c := http.Cookie{
		Name:     sc.Name,
		Value:    sc.Value,
		Path:     sc.Path,
		Expires:  sc.Expires,
		Secure:   sc.Secure,
		SameSite: sc.SameSite,
	}
	if expired(c, s.now()) {
		return nil, false
	}
	return &c, true
}

// SetCookie writes c to the file.
func (s *FileCookieStore) SetCookie(c *http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		all = make(map[string]storedCookie)
	}
	all[c.Name] = storedCookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
	return s.save(all)
}

// DeleteCookie removes the named cookie; missing cookies are ignored.
func (s *FileCookieStore) DeleteCookie(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil
	}
	if _, ok := all[name]; !ok {
		return nil
	}
	delete(all, name)
	if len(all) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove cookie file: %w", err)
		}
		return nil
	}
	return s.save(all)
}

func (s *FileCookieStore) load() (map[string]storedCookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	all := make(map[string]storedCookie)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode cookie file: %w", err)
	}
	return all, nil
}

func (s *FileCookieStore) save(all map[string]storedCookie) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookie file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

func expired(c http.Cookie, now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}
