package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"jostrid/internal/cache"
	"jostrid/internal/config"
	"jostrid/internal/core"
)

var (
	ErrUnknownState = errors.New("unknown or expired oauth state")
)

// loginTTL bounds how long a login attempt may sit between redirect and
// callback.
const loginTTL = 10 * time.Minute

// UserStore is the subset of the repository the OAuth flow needs to map an
// identity provider account onto a local user.
type UserStore interface {
	UpsertUser(ctx context.Context, name, email string) (core.User, error)
}

// pendingLogin holds the per-attempt PKCE verifier between the redirect to
// the identity provider and the callback.
type pendingLogin struct {
	Verifier string
	Redirect string
}

// OAuthService drives the authorization-code flow against the Microsoft
// identity platform and mints session tokens for returning users.
type OAuthService struct {
	oauth       *oauth2.Config
	jwt         *JWTManager
	users       UserStore
	pending     *cache.LRUCache[pendingLogin]
	userinfoURL string
	client      *http.Client
}

// NewOAuthService wires the flow from configuration. The pending-login cache
// doubles as the state registry: a callback state that is not in the cache is
// rejected.
func NewOAuthService(cfg *config.Config, jwt *JWTManager, users UserStore) *OAuthService {
	return &OAuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "profile", "email", "User.Read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		},
		jwt:         jwt,
		users:       users,
		pending:     cache.NewLRUCache[pendingLogin](1024, loginTTL),
		userinfoURL: "https://graph.microsoft.com/v1.0/me",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Begin starts a login attempt and returns the provider URL to redirect the
// browser to. redirect is the in-app path to land on after the callback.
func (s *OAuthService) Begin(redirect string) string {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	s.pending.Set(state, pendingLogin{Verifier: verifier, Redirect: redirect})

	return s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// SessionResult is the outcome of a completed login.
type SessionResult struct {
	User     core.User
	Token    string
	Redirect string
}

// Complete exchanges the callback code, resolves the provider identity to a
// local user and returns a signed session token.
func (s *OAuthService) Complete(ctx context.Context, state, code string) (SessionResult, error) {
	login, ok := s.pending.Get(state)
	if !ok {
		return SessionResult{}, ErrUnknownState
	}
	s.pending.Delete(state)

	tok, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(login.Verifier))
	if err != nil {
		return SessionResult{}, fmt.Errorf("token exchange: %w", err)
	}

	name, email, err := s.fetchIdentity(ctx, tok)
	if err != nil {
		return SessionResult{}, err
	}

	user, err := s.users.UpsertUser(ctx, name, email)
	if err != nil {
		return SessionResult{}, fmt.Errorf("upsert user: %w", err)
	}

	session, err := s.jwt.Generate(user)
	if err != nil {
		return SessionResult{}, err
	}

	return SessionResult{User: user, Token: session, Redirect: login.Redirect}, nil
}

func (s *OAuthService) fetchIdentity(ctx context.Context, tok *oauth2.Token) (name, email string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		return "", "", err
	}
	tok.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var profile struct {
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", "", fmt.Errorf("decode userinfo: %w", err)
	}

	email = profile.Mail
	if email == "" {
		email = profile.UserPrincipalName
	}
	if email == "" {
		return "", "", errors.New("identity provider returned no email")
	}
	return profile.DisplayName, email, nil
}
