package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	// ErrStateMismatch is returned when the authorization callback carries
	// a state value other than the one sent.
	ErrStateMismatch = errors.New("identity: state mismatch")

	// ErrNoIDToken is returned when the token response has no id_token.
	ErrNoIDToken = errors.New("identity: token response has no id_token")
)

// Identity is the signed-in external account.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`

	// IDToken is exchanged for a platform session. It is not persisted.
	IDToken string `json:"-"`
}

// IdentityProvider is the external sign-in flow.
type IdentityProvider interface {
	// SignIn runs the interactive flow and returns the signed-in identity.
	SignIn(ctx context.Context) (*Identity, error)

	// SignOut ends the external session.
	SignOut(ctx context.Context) error

	// OnStateChange registers fn, calls it once with the current identity
	// (nil when signed out) and again on every change.
	OnStateChange(fn func(*Identity)) (unsubscribe func())
}

// CodeSource shows authURL to the user and returns the code and state from
// the redirect. It stands in for the browser popup.
type CodeSource func(ctx context.Context, authURL string) (code, state string, err error)

// GoogleConfig configures GoogleIdentity.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GoogleIdentity is an IdentityProvider for Google accounts using the
// authorization code flow with PKCE.
type GoogleIdentity struct {
	oauth       *oauth2.Config
	userInfoURL string
	codes       CodeSource

	mu        sync.Mutex
	current   *Identity
	listeners map[uint64]func(*Identity)
	nextID    uint64
}

// NewGoogleIdentity creates a provider that obtains codes from codes.
func NewGoogleIdentity(cfg GoogleConfig, codes CodeSource) *GoogleIdentity {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = googleEndpoint
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = googleUserInfoURL
	}

	return &GoogleIdentity{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfo,
		codes:       codes,
		listeners:   make(map[uint64]func(*Identity)),
	}
}

// SignIn implements IdentityProvider.
func (g *GoogleIdentity) SignIn(ctx context.Context) (*Identity, error) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := g.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	code, gotState, err := g.codes(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("identity: authorization: %w", err)
	}
	if gotState != state {
		return nil, ErrStateMismatch
	}

	tok, err := g.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("identity: exchange: %w", err)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, ErrNoIDToken
	}

	id, err := g.userInfo(ctx, tok)
	if err != nil {
		return nil, err
	}
	id.IDToken = idToken

	g.set(id)
	return id, nil
}

func (g *GoogleIdentity) userInfo(ctx context.Context, tok *oauth2.Token) (*Identity, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	resp, err := client.Get(g.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("identity: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: userinfo returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("identity: decode userinfo: %w", err)
	}
	return &id, nil
}

// SignOut implements IdentityProvider.
func (g *GoogleIdentity) SignOut(context.Context) error {
	g.set(nil)
	return nil
}

// OnStateChange implements IdentityProvider.
func (g *GoogleIdentity) OnStateChange(fn func(*Identity)) func() {
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.listeners[id] = fn
	current := g.current
	g.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

func (g *GoogleIdentity) set(id *Identity) {
	g.mu.Lock()
	g.current = id
	listeners := make([]func(*Identity), 0, len(g.listeners))
	for _, fn := range g.listeners {
		listeners = append(listeners, fn)
	}
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
}
