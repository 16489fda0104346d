package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/huykn/teamup-client/api"
	"github.com/huykn/teamup-client/cache"
	"github.com/huykn/teamup-client/storage"
)

// AuthStatus is the sign-in state.
type AuthStatus string

const (
	AuthIdle            AuthStatus = "idle"
	AuthLoading         AuthStatus = "loading"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

// Account is the platform side of a session.
type Account struct {
	Role api.Role  `json:"role"`
	User *api.User `json:"user,omitempty"`
}

// AuthState is the auth store record. Err is never persisted.
type AuthState struct {
	Status  AuthStatus `json:"status"`
	User    *Identity  `json:"user,omitempty"`
	Account *Account   `json:"account,omitempty"`
	Err     error      `json:"-"`
}

// Sessions exchanges an external ID token for a platform session.
// *api.API implements it.
type Sessions interface {
	LoginWithGoogle(ctx context.Context, idToken string) (api.Session, error)
}

// Tokens is the credential storage the auth store drives.
// *token.Manager implements it.
type Tokens interface {
	SetTokens(access, refresh string) error
	ClearTokens()
	IsAuthenticated() bool
}

// AuthConfig wires an AuthStore.
type AuthConfig struct {
	Sessions Sessions
	Tokens   Tokens
	Identity IdentityProvider

	// Profile is fetched after a student signs in and cleared on sign-out.
	Profile *ProfileStore

	// Dependents are reset on sign-out.
	Dependents []Resetter

	// Snapshots persists the auth record between runs. Optional.
	Snapshots storage.Store

	Logger cache.Logger
}

// Validate checks the required collaborators.
func (c *AuthConfig) Validate() error {
	if c.Sessions == nil || c.Tokens == nil || c.Identity == nil {
		return errors.New("store: auth store needs sessions, tokens and an identity provider")
	}
	return nil
}

// AuthStore drives sign-in and sign-out.
type AuthStore struct {
	cfg    AuthConfig
	snaps  *snapshots
	logger cache.Logger

	initMu      sync.Mutex
	initOnce    *sync.Once
	unsubscribe func()

	mu    sync.Mutex
	state AuthState
}

// NewAuthStore creates an auth store in the idle state.
func NewAuthStore(cfg AuthConfig) (*AuthStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = cache.NewNoOpLogger()
	}
	return &AuthStore{
		cfg:      cfg,
		snaps:    newSnapshots(cfg.Snapshots),
		logger:   logger,
		initOnce: new(sync.Once),
		state:    AuthState{Status: AuthIdle},
	}, nil
}

// Init restores the persisted record and subscribes to the identity
// provider. Only the first call has any effect until Reset.
func (s *AuthStore) Init(ctx context.Context) error {
	s.initMu.Lock()
	once := s.initOnce
	s.initMu.Unlock()

	var err error
	once.Do(func() {
		err = s.init(ctx)
	})
	return err
}

func (s *AuthStore) init(ctx context.Context) error {
	var snap AuthState
	ok, err := s.snaps.load(ctx, AuthSnapshotKey, &snap)
	if err != nil {
		s.logger.Warn("Auth: failed to restore snapshot", "error", err)
	}
	if ok {
		s.mu.Lock()
		s.state = AuthState{Status: snap.Status, User: snap.User, Account: snap.Account}
		s.mu.Unlock()
	}
	if s.cfg.Profile != nil {
		if err := s.cfg.Profile.Restore(ctx); err != nil {
			s.logger.Warn("Auth: failed to restore profile", "error", err)
		}
	}

	unsubscribe := s.cfg.Identity.OnStateChange(func(id *Identity) {
		s.onIdentity(context.WithoutCancel(ctx), id)
	})
	s.initMu.Lock()
	s.unsubscribe = unsubscribe
	s.initMu.Unlock()
	return nil
}

// onIdentity decides authenticated or unauthenticated from the provider's
// view and the stored credentials. A sign-in in progress owns the state.
func (s *AuthStore) onIdentity(ctx context.Context, id *Identity) {
	s.mu.Lock()
	if s.state.Status == AuthLoading {
		s.mu.Unlock()
		return
	}
	if s.cfg.Tokens.IsAuthenticated() && (id != nil || s.state.Account != nil) {
		s.state.Status = AuthAuthenticated
		if id != nil {
			s.state.User = id
		}
	} else {
		s.state = AuthState{Status: AuthUnauthenticated}
	}
	snap := s.state
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// SignInWithGoogle runs the identity flow, exchanges the ID token for a
// platform session and stores the tokens. Students get their profile
// loaded right after.
func (s *AuthStore) SignInWithGoogle(ctx context.Context) error {
	s.mu.Lock()
	s.state.Status = AuthLoading
	s.state.Err = nil
	s.mu.Unlock()

	id, err := s.cfg.Identity.SignIn(ctx)
	if err != nil {
		return s.signInFailed(ctx, fmt.Errorf("google sign-in: %w", err))
	}

	sess, err := s.cfg.Sessions.LoginWithGoogle(ctx, id.IDToken)
	if err != nil {
		return s.signInFailed(ctx, err)
	}
	if err := s.cfg.Tokens.SetTokens(sess.AccessToken, sess.RefreshToken); err != nil {
		return s.signInFailed(ctx, fmt.Errorf("store tokens: %w", err))
	}

	s.mu.Lock()
	s.state = AuthState{
		Status:  AuthAuthenticated,
		User:    id,
		Account: &Account{Role: sess.Role, User: sess.User},
	}
	snap := s.state
	s.mu.Unlock()
	s.persist(ctx, snap)

	if sess.Role == api.RoleStudent && s.cfg.Profile != nil {
		if err := s.cfg.Profile.FetchProfile(ctx); err != nil {
			s.logger.Warn("Auth: profile fetch after sign-in failed", "error", err)
		}
	}
	return nil
}

func (s *AuthStore) signInFailed(ctx context.Context, err error) error {
	s.mu.Lock()
	s.state = AuthState{Status: AuthUnauthenticated, Err: err}
	snap := s.state
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.logger.Warn("Auth: sign-in failed", "error", err)
	return err
}

// SignOut ends the external session, clears the tokens and every
// dependent store. It always finishes in the unauthenticated state; the
// returned error reports steps that failed on the way.
func (s *AuthStore) SignOut(ctx context.Context) error {
	var errs []error
	if err := s.cfg.Identity.SignOut(ctx); err != nil {
		errs = append(errs, fmt.Errorf("identity sign-out: %w", err))
	}
	s.cfg.Tokens.ClearTokens()

	if s.cfg.Profile != nil {
		if err := s.cfg.Profile.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range s.cfg.Dependents {
		if err := d.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.state = AuthState{Status: AuthUnauthenticated}
	s.mu.Unlock()
	if err := s.snaps.remove(ctx, AuthSnapshotKey); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// State returns the current record.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the signed-in account role, or "" when signed out.
func (s *AuthStore) Role() api.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != AuthAuthenticated || s.state.Account == nil {
		return ""
	}
	return s.state.Account.Role
}

// Reset drops the identity subscription and returns the store to idle so
// that Init runs again.
func (s *AuthStore) Reset(ctx context.Context) error {
	s.initMu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.initOnce = new(sync.Once)
	s.initMu.Unlock()

	s.mu.Lock()
	s.state = AuthState{Status: AuthIdle}
	s.mu.Unlock()
	return s.snaps.remove(ctx, AuthSnapshotKey)
}

func (s *AuthStore) persist(ctx context.Context, snap AuthState) {
	if err := s.snaps.save(ctx, AuthSnapshotKey, snap); err != nil {
		s.logger.Warn("Auth: failed to persist snapshot", "error", err)
	}
}
