package crm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// AuthConfig holds the OAuth client credentials for the CRM
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string // e.g. https://accounts.zoho.eu/oauth/v2/token
}

// Authenticator exchanges the long-lived refresh token for access tokens.
// The current access token is cached until Refresh is called.
type Authenticator struct {
	conf         *oauth2.Config
	refreshToken string
	httpClient   *http.Client

	mu    sync.Mutex
	token string
}

// NewAuthenticator creates a new authenticator. httpClient may be nil.
func NewAuthenticator(cfg AuthConfig, httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Authenticator{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: cfg.RefreshToken,
		httpClient:   httpClient,
	}
}

// Token returns the cached access token, fetching one if none is cached
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()

	if token != "" {
		return token, nil
	}
	return a.Refresh(ctx)
}

// Refresh performs a refresh-token exchange and replaces the cached token
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("failed to get access token: empty token in response")
	}

	a.token = tok.AccessToken
	return a.token, nil
}
