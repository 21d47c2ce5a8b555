// Package oauth implements the Frontify OAuth2 PKCE protocol calls:
// session initialization, authorization URL construction, session polling,
// token exchange, refresh, and revocation. Each operation is one round
// trip against https://<domain>/api/oauth/... plus error translation into
// the typed taxonomy in pkg/auth/types.
package oauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontify/authenticator-go/pkg/auth/types"
)

// redirectPath is the fixed redirect_uri path on the instance domain.
const redirectPath = "/api/oauth/redirect"

// Service performs the OAuth protocol calls against a Frontify instance.
type Service struct {
	client *Client
	logger zerolog.Logger
}

// NewService creates a protocol service. httpClient may be nil.
func NewService(httpClient *http.Client, logger zerolog.Logger) *Service {
	return &Service{
		client: NewClient(httpClient, logger),
		logger: logger,
	}
}

func endpoint(domain, path string) string {
	return "https://" + types.NormalizeDomain(domain) + path
}

// InitializeSession creates an out-of-band polling session on the instance
// and returns its key.
func (s *Service) InitializeSession(ctx context.Context, domain string) (string, error) {
	var out struct {
		Data struct {
			Key string `json:"key"`
		} `json:"data"`
	}

	err := s.client.PostJSON(ctx, endpoint(domain, "/api/oauth/create/session"), nil, &out)
	if err != nil {
		return "", types.NewError(types.CodeSessionInitFailed, "failed to initialize OAuth session", err)
	}
	if out.Data.Key == "" {
		return "", types.NewError(types.CodeSessionInitFailed, "session response carried no key", nil)
	}

	s.logger.Debug().Str("domain", types.NormalizeDomain(domain)).Msg("oauth session initialized")
	return out.Data.Key, nil
}

// ComputeAuthorizationURL generates a PKCE verifier, initializes a polling
// session, and assembles the authorization URL for the popup to navigate
// to. The returned verifier must only ever be sent in the final token
// exchange.
func (s *Service) ComputeAuthorizationURL(ctx context.Context, config *types.Config) (*types.AuthorizationURL, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, types.NewError(types.CodeAuthURLComputationFailed, "failed to generate code verifier", err)
	}

	sessionID, err := s.InitializeSession(ctx, config.Domain)
	if err != nil {
		return nil, types.NewError(types.CodeAuthURLComputationFailed, "failed to compute authorization URL", err)
	}

	domain := config.NormalizedDomain()

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", config.ClientID)
	query.Set("scope", strings.Join(config.Scopes, " "))
	query.Set("code_challenge", CodeChallenge(verifier))
	query.Set("code_challenge_method", "S256")
	query.Set("redirect_uri", "https://"+domain+redirectPath)
	query.Set("session_id", sessionID)

	return &types.AuthorizationURL{
		URL:          "https://" + domain + "/api/oauth/authorize?" + query.Encode(),
		CodeVerifier: verifier,
		SessionID:    sessionID,
	}, nil
}

// PollSession asks the instance for the authorization code tied to a
// session. The call long-polls: it returns once the instance has observed
// the user complete authorization, so it must only be made after the popup
// reports success.
func (s *Service) PollSession(ctx context.Context, config *types.Config, sessionID string) (string, error) {
	body := map[string]string{"session_id": sessionID}

	var out struct {
		Data struct {
			Payload struct {
				Code string `json:"code"`
			} `json:"payload"`
		} `json:"data"`
	}

	err := s.client.PostJSON(ctx, endpoint(config.Domain, "/api/oauth/poll"), body, &out)
	if err != nil {
		return "", types.NewError(types.CodeSessionPollFailed, "failed to poll OAuth session", err)
	}
	if out.Data.Payload.Code == "" {
		return "", types.NewError(types.CodeSessionPollFailed, "poll response carried no authorization code", nil)
	}

	return out.Data.Payload.Code, nil
}

// tokenResponse is the wire shape of the exchange and refresh endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// GetAccessToken exchanges an authorization code and its verifier for a
// token, stamping the normalized instance domain into the result.
func (s *Service) GetAccessToken(ctx context.Context, config *types.Config, code, codeVerifier string) (*types.Token, error) {
	domain := config.NormalizedDomain()

	body := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"code_verifier": codeVerifier,
		"client_id":     config.ClientID,
		"redirect_uri":  "https://" + domain + redirectPath,
	}

	var out tokenResponse
	if err := s.client.PostJSON(ctx, endpoint(config.Domain, "/api/oauth/accesstoken"), body, &out); err != nil {
		return nil, types.NewError(types.CodeAccessTokenFailed, "failed to exchange authorization code", err)
	}

	return newToken(&out, domain, config.ClientID, config.Scopes), nil
}

// GetRefreshToken obtains a fresh token via the refresh_token grant.
func (s *Service) GetRefreshToken(ctx context.Context, domain, refreshToken, clientID string, scopes []string) (*types.Token, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     clientID,
		"scope":         strings.Join(scopes, " "),
	}

	var out tokenResponse
	if err := s.client.PostJSON(ctx, endpoint(domain, "/api/oauth/refresh"), body, &out); err != nil {
		return nil, types.NewError(types.CodeRefreshFailed, "failed to refresh token", err)
	}

	return newToken(&out, types.NormalizeDomain(domain), clientID, scopes), nil
}

// RevokeToken revokes an access token on the instance. Callers decide
// whether a revocation failure is fatal; the remote token is merely left
// un-revoked.
func (s *Service) RevokeToken(ctx context.Context, domain, accessToken string) error {
	body := map[string]string{"token": accessToken}

	if err := s.client.PostJSON(ctx, endpoint(domain, "/api/oauth/revoke"), body, nil); err != nil {
		return types.NewError(types.CodeRevokeFailed, "failed to revoke token", err)
	}
	return nil
}

func newToken(resp *tokenResponse, domain, clientID string, scopes []string) *types.Token {
	return &types.Token{
		Bearer: types.BearerToken{
			TokenType:    "Bearer",
			ExpiresIn:    resp.ExpiresIn,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			Domain:       domain,
		},
		ClientID: clientID,
		Scopes:   scopes,
		IssuedAt: time.Now(),
	}
}
