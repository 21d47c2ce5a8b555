package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/frontify/authenticator-go/pkg/auth/types"
)

// OAuth2Token converts a token into the golang.org/x/oauth2 representation
// so it plugs into SDKs built on that package.
func OAuth2Token(token *types.Token) *oauth2.Token {
	if token == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  token.Bearer.AccessToken,
		RefreshToken: token.Bearer.RefreshToken,
		TokenType:    token.Bearer.TokenType,
		Expiry:       token.ExpiresAt(),
	}
}

// TokenSource returns an oauth2.TokenSource backed by the authenticator's
// refresh grant. The source refreshes through Refresh when the held token
// expires; it never re-runs the interactive flow.
func (a *Authenticator) TokenSource(ctx context.Context, token *types.Token) oauth2.TokenSource {
	return &refreshTokenSource{ctx: ctx, authenticator: a, token: token}
}

type refreshTokenSource struct {
	ctx           context.Context
	authenticator *Authenticator

	mu    sync.Mutex
	token *types.Token
}

func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.IsValid() {
		return OAuth2Token(s.token), nil
	}
	if s.token == nil {
		return nil, types.NewError(types.CodeRefreshFailed, "no token held by source", nil)
	}

	refreshed, err := s.authenticator.Refresh(s.ctx, s.token)
	if err != nil {
		return nil, err
	}
	s.token = refreshed
	return OAuth2Token(refreshed), nil
}
