package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/frontify/authenticator-go/pkg/auth/types"
)

// AuthenticatedClient wraps an HTTP client so every request carries the
// token's Bearer credential. An expired token is refreshed transparently
// before the request; the refreshed token replaces the held one. The
// client holds the token in memory only, it is never persisted.
type AuthenticatedClient struct {
	client        *http.Client
	authenticator *Authenticator

	mu    sync.Mutex
	token *types.Token
}

// NewAuthenticatedClient creates an authenticated HTTP client around a
// token obtained from Authorize. client may be nil.
func NewAuthenticatedClient(client *http.Client, authenticator *Authenticator, token *types.Token) *AuthenticatedClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &AuthenticatedClient{
		client:        client,
		authenticator: authenticator,
		token:         token,
	}
}

// Token returns the currently held token.
func (c *AuthenticatedClient) Token() *types.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Do executes the request with the Authorization header injected.
func (c *AuthenticatedClient) Do(req *http.Request) (*http.Response, error) {
	token, err := c.currentToken(req)
	if err != nil {
		return nil, err
	}

	tokenType := token.Bearer.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	req.Header.Set("Authorization", tokenType+" "+token.Bearer.AccessToken)

	return c.client.Do(req)
}

// currentToken returns the held token, refreshing it first when it is
// known to have expired.
func (c *AuthenticatedClient) currentToken(req *http.Request) (*types.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && !tokenExpired(c.token) {
		return c.token, nil
	}
	if c.token == nil {
		return nil, types.NewError(types.CodeRefreshFailed, "no token held by client", nil)
	}

	refreshed, err := c.authenticator.Refresh(req.Context(), c.token)
	if err != nil {
		return nil, err
	}
	c.token = refreshed
	return refreshed, nil
}

// tokenExpired reports expiry from the local issuance stamp, falling back
// to the exp claim when the access token happens to be a JWT.
func tokenExpired(token *types.Token) bool {
	if token.IsExpired() {
		return true
	}
	if !token.ExpiresAt().IsZero() {
		return false
	}
	if exp, ok := TokenExpiry(token.Bearer.AccessToken); ok {
		return time.Now().Add(30 * time.Second).After(exp)
	}
	return false
}
