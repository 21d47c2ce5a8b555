// Package auth implements interactive OAuth2 PKCE authorization against a
// user-specified Frontify instance, using a browser popup as the
// authorization surface.
//
// The flow is driven by Authenticator.Authorize:
//
//  1. A popup window is opened. A popup left over from a previous
//     in-flight attempt is force-closed first, so at most one popup ever
//     exists per Authenticator.
//  2. If the configuration carries no instance domain, the popup is
//     navigated to the domain-selection page and the flow waits for the
//     chosen domain.
//  3. A PKCE authorization URL and an out-of-band polling session are
//     created, the popup is navigated to the authorization page, and the
//     flow waits for a terminal signal: success, cancellation, or
//     abandonment. Each wait phase is bounded by a five-minute timeout.
//  4. On success, the session is polled for the authorization code and
//     the code is exchanged for a token.
//
// The popup's closed-window poll and its message listener run concurrently
// with whatever the flow is waiting on; a user closing the window and a
// cancel message arriving can both report the same physical event. Signals
// are funneled into a single buffered channel per attempt and each wait is
// one select, so only the first settlement is acted upon.
//
// Popup resources (window handle, poll timer, message listener) are
// released on every terminal path. No state survives between calls: each
// Authorize call is a fresh attempt.
//
// # Example
//
//	authenticator := auth.New()
//	token, err := authenticator.Authorize(ctx, &types.Config{
//	    ClientID: "my-client",
//	    Scopes:   []string{"basic"},
//	}, nil)
//
// Refresh and Revoke are stateless one-shot calls using fields already
// present in the token; they never touch the popup.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frontify/authenticator-go/pkg/auth/types"
	"github.com/frontify/authenticator-go/pkg/oauth"
	"github.com/frontify/authenticator-go/pkg/popup"
)

// DefaultTimeout bounds each interactive wait phase of an authorization
// attempt.
const DefaultTimeout = 5 * time.Minute

// DefaultDomainSelectionURL is the hosted page used to collect an instance
// domain when the configuration does not carry one.
const DefaultDomainSelectionURL = "https://frontify.com/select-domain"

// domainValidationMessage is posted into the popup, best-effort, when the
// exchange phase fails, for display if the popup page is still listening.
const domainValidationMessage = "The entered domain appears to be invalid or insecure. Please verify it and try again."

// Authenticator orchestrates authorization attempts. The zero value is not
// usable; create one with New.
type Authenticator struct {
	service            *oauth.Service
	opener             popup.WindowOpener
	logger             zerolog.Logger
	timeout            time.Duration
	domainSelectionURL string

	// mu guards the single-popup invariant across concurrent Authorize calls.
	mu     sync.Mutex
	active *activeAttempt
}

// Option configures an Authenticator.
type Option func(*options)

type options struct {
	httpClient         *http.Client
	opener             popup.WindowOpener
	logger             zerolog.Logger
	timeout            time.Duration
	domainSelectionURL string
}

// WithHTTPClient sets the HTTP client used for all protocol calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithWindowOpener sets the popup window implementation.
func WithWindowOpener(opener popup.WindowOpener) Option {
	return func(o *options) { o.opener = opener }
}

// WithLogger sets the logging sink. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout overrides the per-phase wait timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithDomainSelectionURL overrides the hosted domain-selection page.
func WithDomainSelectionURL(url string) Option {
	return func(o *options) { o.domainSelectionURL = url }
}

// New creates an Authenticator. By default it drives the system browser
// via a loopback message bridge, discards logs, and bounds each wait phase
// at five minutes.
func New(opts ...Option) *Authenticator {
	o := &options{
		logger:             zerolog.Nop(),
		timeout:            DefaultTimeout,
		domainSelectionURL: DefaultDomainSelectionURL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.opener == nil {
		o.opener = &popup.BrowserWindowOpener{Logger: o.logger}
	}

	return &Authenticator{
		service:            oauth.NewService(o.httpClient, o.logger),
		opener:             o.opener,
		logger:             o.logger,
		timeout:            o.timeout,
		domainSelectionURL: o.domainSelectionURL,
	}
}

// Authorize runs one end-to-end authorization attempt and returns the
// resulting token. Browsers typically only allow popups opened
// synchronously within a user gesture, so call this directly from the
// user-initiated action.
//
// When config.Domain is empty the attempt starts with domain discovery and
// writes the chosen domain back into config. If the subsequent
// authorization URL computation fails, config.Domain is cleared again so a
// caller-driven retry re-prompts for it.
func (a *Authenticator) Authorize(ctx context.Context, config *types.Config, popupCfg *popup.Config) (*types.Token, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	logger := a.logger.With().Str("attempt", uuid.NewString()).Logger()

	var cfg popup.Config
	if popupCfg != nil {
		cfg = *popupCfg
	}

	attempt, err := a.beginAttempt(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.endAttempt(attempt)

	return a.run(ctx, attempt, config, logger)
}

// run drives one attempt from an opened popup to a terminal outcome.
func (a *Authenticator) run(ctx context.Context, attempt *activeAttempt, config *types.Config, logger zerolog.Logger) (*types.Token, error) {
	p := attempt.popup

	discovered := false
	if config.Domain == "" {
		if err := p.Navigate(a.domainSelectionURL); err != nil {
			return nil, err
		}
		logger.Debug().Msg("waiting for domain selection")

		sig, err := attempt.wait(ctx, a.timeout, popup.SignalDomain)
		if err != nil {
			return nil, err
		}
		if sig != popup.SignalDomain {
			return nil, types.NewError(types.CodeAuthorizationCancelled, "authorization cancelled", nil)
		}

		config.Domain = types.NormalizeDomain(p.Domain())
		discovered = true
		logger.Debug().Str("domain", config.Domain).Msg("domain selected")
	}

	authURL, err := a.service.ComputeAuthorizationURL(ctx, config)
	if err != nil {
		if discovered {
			// Re-prompt for the domain on the caller's next attempt.
			config.Domain = ""
		}
		return nil, err
	}

	if err := p.Navigate(authURL.URL); err != nil {
		return nil, err
	}
	logger.Debug().Str("domain", config.Domain).Msg("waiting for authorization")

	sig, err := attempt.wait(ctx, a.timeout, popup.SignalSuccess)
	if err != nil {
		return nil, err
	}
	if sig != popup.SignalSuccess {
		return nil, types.NewError(types.CodeAuthorizationCancelled, "authorization cancelled", nil)
	}

	code, err := a.service.PollSession(ctx, config, authURL.SessionID)
	if err != nil {
		a.postValidationError(p, logger)
		return nil, err
	}

	token, err := a.service.GetAccessToken(ctx, config, code, authURL.CodeVerifier)
	if err != nil {
		a.postValidationError(p, logger)
		return nil, err
	}
	if token == nil || token.Bearer.AccessToken == "" {
		return nil, types.NewError(types.CodeNoTokenReturned, "token endpoint returned no token", nil)
	}

	logger.Debug().Str("domain", token.Bearer.Domain).Msg("authorization complete")
	return token, nil
}

// Refresh obtains a fresh token via the refresh_token grant, using fields
// already present in the token. It does not touch the popup.
func (a *Authenticator) Refresh(ctx context.Context, token *types.Token) (*types.Token, error) {
	if token == nil || token.Bearer.RefreshToken == "" {
		return nil, types.NewError(types.CodeRefreshFailed, "refresh token not available", nil)
	}
	return a.service.GetRefreshToken(ctx, token.Bearer.Domain, token.Bearer.RefreshToken, token.ClientID, token.Scopes)
}

// Revoke revokes the token's access credential on its instance and returns
// the token unchanged. A revocation failure leaves the remote token merely
// un-revoked; callers decide whether to treat it as fatal.
func (a *Authenticator) Revoke(ctx context.Context, token *types.Token) (*types.Token, error) {
	if token == nil || token.Bearer.AccessToken == "" {
		return nil, types.NewError(types.CodeRevokeFailed, "no access token to revoke", nil)
	}
	if err := a.service.RevokeToken(ctx, token.Bearer.Domain, token.Bearer.AccessToken); err != nil {
		return nil, err
	}
	return token, nil
}

// postValidationError best-effort posts the validation message into the
// popup before it is torn down.
func (a *Authenticator) postValidationError(p *popup.Popup, logger zerolog.Logger) {
	if err := p.Post(popup.Message{Text: domainValidationMessage}); err != nil {
		logger.Debug().Err(err).Msg("could not post validation message to popup")
	}
}
