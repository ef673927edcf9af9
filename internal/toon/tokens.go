package toon

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// TokenStore holds the OAuth2 client registration together with the
// authorization code and access token obtained for it.
//
// The registration is fixed at construction. Code and token are the only
// mutable state and change through SetCode, Exchange and Clear. No lock is
// held while the token endpoint is called.
//
// TokenStore implements oauth2.TokenSource so API clients can use it
// directly as their credential source.
//
// Thread Safety: All methods are safe for concurrent use.
type TokenStore struct {
	oauth      oauth2.Config
	httpClient *http.Client

	mu          sync.RWMutex
	code        string
	redirectURI string
	token       *oauth2.Token
}

// NewTokenStore creates a store for the client registration in cfg, seeded
// with any code or token the configuration already carries.
//
// Parameters:
//   - cfg: Bridge configuration (client ID/secret, endpoints, seed values)
//   - httpClient: Client used for the token endpoint; nil uses http.DefaultClient
func NewTokenStore(cfg Config, httpClient *http.Client) *TokenStore {
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	s := &TokenStore{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		code:       cfg.AccessCode,
	}
	if cfg.AccessToken != "" {
		s.token = &oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"}
	}
	return s
}

// AuthorizationURL returns the Toon consent page URL that redirects back to
// redirectURI. It has no side effects and is deterministic for a given
// redirect URI.
func (s *TokenStore) AuthorizationURL(redirectURI string) string {
	conf := s.oauth
	conf.RedirectURL = redirectURI
	return conf.AuthCodeURL("")
}

// SetCode records an authorization code and the redirect URI it was issued
// against. Any previous token is kept until an exchange replaces it.
func (s *TokenStore) SetCode(code, redirectURI string) {
	s.mu.Lock()
	s.code = code
	s.redirectURI = redirectURI
	s.mu.Unlock()
}

// Code returns the recorded authorization code and redirect URI.
func (s *TokenStore) Code() (code, redirectURI string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code, s.redirectURI
}

// Authorized reports whether an access token is present.
func (s *TokenStore) Authorized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil && s.token.AccessToken != ""
}

// Exchange trades an authorization code for an access token and stores it.
// The redirect URI must be the one the code was issued against.
//
// Returns:
//   - *oauth2.Token: The new token
//   - error: ErrOAuthExchange wrapping the provider or transport failure
func (s *TokenStore) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	conf := s.oauth
	conf.RedirectURL = redirectURI

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrOAuthExchange)
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	return tok, nil
}

// Token implements oauth2.TokenSource. Expired tokens are handed out as-is;
// the API rejecting them is what surfaces the problem.
func (s *TokenStore) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil || s.token.AccessToken == "" {
		return nil, ErrAuthorizationPending
	}
	tok := *s.token
	return &tok, nil
}

// Clear forgets the code and token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.code = ""
	s.redirectURI = ""
	s.token = nil
	s.mu.Unlock()
}
