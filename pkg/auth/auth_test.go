package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontify/authenticator-go/internal/oauthtest"
	"github.com/frontify/authenticator-go/pkg/auth"
	"github.com/frontify/authenticator-go/pkg/auth/types"
	"github.com/frontify/authenticator-go/pkg/popup"
)

type fixture struct {
	server        *oauthtest.Server
	opener        *oauthtest.FakeOpener
	authenticator *auth.Authenticator
}

func newFixture(t *testing.T, opts ...auth.Option) *fixture {
	t.Helper()

	server := oauthtest.NewServer()
	t.Cleanup(server.Close)

	opener := &oauthtest.FakeOpener{}
	base := []auth.Option{
		auth.WithHTTPClient(server.Client()),
		auth.WithWindowOpener(opener),
	}

	return &fixture{
		server:        server,
		opener:        opener,
		authenticator: auth.New(append(base, opts...)...),
	}
}

type authorizeResult struct {
	token *types.Token
	err   error
}

func (f *fixture) authorize(ctx context.Context, config *types.Config) <-chan authorizeResult {
	results := make(chan authorizeResult, 1)
	go func() {
		token, err := f.authenticator.Authorize(ctx, config, nil)
		results <- authorizeResult{token: token, err: err}
	}()
	return results
}

func awaitResult(t *testing.T, results <-chan authorizeResult) authorizeResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Authorize to return")
		return authorizeResult{}
	}
}

func awaitClosed(t *testing.T, window *oauthtest.FakeWindow) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !window.Closed() {
		if time.Now().After(deadline) {
			t.Fatal("popup window was not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAuthorize_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.server.SetSessionKey("s1")
	f.server.SetCode("c1")
	f.server.SetTokenResponse("at1", "rt1", 3600)

	config := &types.Config{
		Domain:   "example.frontify.test",
		ClientID: "abc",
		Scopes:   []string{"basic"},
	}

	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)

	authURL, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)
	assert.Contains(t, authURL, "https://example.frontify.test/api/oauth/authorize?")
	assert.Contains(t, authURL, "session_id=s1")

	window.Emit(popup.Message{Text: popup.SentinelSuccess})

	r := awaitResult(t, results)
	require.NoError(t, r.err)

	assert.Equal(t, "Bearer", r.token.Bearer.TokenType)
	assert.Equal(t, 3600, r.token.Bearer.ExpiresIn)
	assert.Equal(t, "at1", r.token.Bearer.AccessToken)
	assert.Equal(t, "rt1", r.token.Bearer.RefreshToken)
	assert.Equal(t, "example.frontify.test", r.token.Bearer.Domain)
	assert.Equal(t, "abc", r.token.ClientID)
	assert.Equal(t, []string{"basic"}, r.token.Scopes)

	awaitClosed(t, window)
}

func TestAuthorize_Cancelled(t *testing.T) {
	f := newFixture(t)

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc", Scopes: []string{"basic"}}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	window.Emit(popup.Message{Text: popup.SentinelCancelled})

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthorizationCancelled))

	// The terminal cancel happens before any exchange traffic.
	assert.Equal(t, 0, f.server.CallCount("/api/oauth/poll"))
	assert.Equal(t, 0, f.server.CallCount("/api/oauth/accesstoken"))

	awaitClosed(t, window)
}

func TestAuthorize_DomainDiscovery(t *testing.T) {
	f := newFixture(t)
	f.server.SetSessionKey("s1")
	f.server.SetCode("c1")
	f.server.SetTokenResponse("at1", "rt1", 3600)

	config := &types.Config{ClientID: "abc", Scopes: []string{"basic"}}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)

	selectionURL, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, auth.DefaultDomainSelectionURL, selectionURL)

	window.Emit(popup.Message{Domain: "other.test"})

	authURL, ok := window.AwaitNavigation(2, 2*time.Second)
	require.True(t, ok)
	assert.Contains(t, authURL, "https://other.test/api/oauth/authorize?")

	window.Emit(popup.Message{Text: popup.SentinelSuccess})

	r := awaitResult(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, "other.test", r.token.Bearer.Domain)
	assert.Equal(t, "other.test", config.Domain, "discovered domain should be written back")
}

func TestAuthorize_DomainDiscoveryAborted(t *testing.T) {
	f := newFixture(t)

	config := &types.Config{ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	// User closes the popup before choosing a domain.
	window.SetClosed(true)

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthorizationCancelled))
	assert.Empty(t, config.Domain)
}

func TestAuthorize_DomainClearedOnAuthURLFailure(t *testing.T) {
	f := newFixture(t)
	f.server.FailSession(true)

	config := &types.Config{ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	window.Emit(popup.Message{Domain: "other.test"})

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthURLComputationFailed))
	assert.Empty(t, config.Domain, "domain should be cleared so a retry re-prompts")
}

func TestAuthorize_UserClosesPopup(t *testing.T) {
	f := newFixture(t)

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	window.SetClosed(true)

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthorizationCancelled))
	assert.Equal(t, 0, f.server.CallCount("/api/oauth/poll"))
}

func TestAuthorize_Timeout(t *testing.T) {
	f := newFixture(t, auth.WithTimeout(100*time.Millisecond))

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthorizationTimedOut))

	awaitClosed(t, window)
}

func TestAuthorize_ContextCancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc"}
	results := f.authorize(ctx, config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	cancel()

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeAuthorizationCancelled))
	assert.True(t, errors.Is(r.err, context.Canceled))
}

func TestAuthorize_SingleFlight(t *testing.T) {
	f := newFixture(t)
	f.server.SetTokenResponse("at1", "rt1", 3600)

	first := f.authorize(context.Background(), &types.Config{Domain: "example.frontify.test", ClientID: "abc"})

	window1 := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window1)
	_, ok := window1.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	second := f.authorize(context.Background(), &types.Config{Domain: "example.frontify.test", ClientID: "abc"})

	window2 := f.opener.AwaitWindow(2, 2*time.Second)
	require.NotNil(t, window2)

	// The first attempt is superseded: its popup is force-closed and its
	// pending call settles.
	r1 := awaitResult(t, first)
	require.Error(t, r1.err)
	assert.True(t, types.IsCode(r1.err, types.CodeAuthorizationCancelled))
	assert.True(t, window1.Closed())

	// The second attempt proceeds normally.
	_, ok = window2.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)
	window2.Emit(popup.Message{Text: popup.SentinelSuccess})

	r2 := awaitResult(t, second)
	require.NoError(t, r2.err)
	assert.Equal(t, "at1", r2.token.Bearer.AccessToken)
}

func TestAuthorize_PopupBlocked(t *testing.T) {
	f := newFixture(t)
	f.opener.Err = errors.New("blocked")

	_, err := f.authenticator.Authorize(context.Background(), &types.Config{Domain: "d.test", ClientID: "abc"}, nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodePopupBlocked))
}

func TestAuthorize_PollFailurePostsValidationMessage(t *testing.T) {
	f := newFixture(t)
	f.server.FailPoll(true)

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	window.Emit(popup.Message{Text: popup.SentinelSuccess})

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeSessionPollFailed))

	posted := window.Posted()
	require.Len(t, posted, 1)
	assert.True(t, strings.Contains(posted[0].Text, "invalid or insecure"))
}

func TestAuthorize_NoTokenReturned(t *testing.T) {
	f := newFixture(t)
	f.server.SetTokenResponse("", "", 0)

	config := &types.Config{Domain: "example.frontify.test", ClientID: "abc"}
	results := f.authorize(context.Background(), config)

	window := f.opener.AwaitWindow(1, 2*time.Second)
	require.NotNil(t, window)
	_, ok := window.AwaitNavigation(1, 2*time.Second)
	require.True(t, ok)

	window.Emit(popup.Message{Text: popup.SentinelSuccess})

	r := awaitResult(t, results)
	require.Error(t, r.err)
	assert.True(t, types.IsCode(r.err, types.CodeNoTokenReturned))
}

func TestAuthorize_InvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.authenticator.Authorize(context.Background(), nil, nil)
	require.Error(t, err)

	_, err = f.authenticator.Authorize(context.Background(), &types.Config{Domain: "d.test"}, nil)
	require.Error(t, err)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	f.server.SetTokenResponse("at2", "rt2", 1800)

	token, err := f.authenticator.Refresh(context.Background(), &types.Token{
		Bearer: types.BearerToken{
			RefreshToken: "rt1",
			Domain:       "example.frontify.test",
		},
		ClientID: "abc",
		Scopes:   []string{"basic"},
	})
	require.NoError(t, err)
	assert.Equal(t, "at2", token.Bearer.AccessToken)
	assert.Equal(t, "rt2", token.Bearer.RefreshToken)
	assert.Equal(t, "example.frontify.test", token.Bearer.Domain)
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.authenticator.Refresh(context.Background(), &types.Token{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeRefreshFailed))

	_, err = f.authenticator.Refresh(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeRefreshFailed))
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)

	token := &types.Token{
		Bearer: types.BearerToken{AccessToken: "at1", Domain: "example.frontify.test"},
	}

	out, err := f.authenticator.Revoke(context.Background(), token)
	require.NoError(t, err)
	assert.Same(t, token, out)
	assert.Equal(t, 1, f.server.CallCount("/api/oauth/revoke"))
}

func TestRevoke_Failure(t *testing.T) {
	f := newFixture(t)
	f.server.FailRevoke(true)

	_, err := f.authenticator.Revoke(context.Background(), &types.Token{
		Bearer: types.BearerToken{AccessToken: "at1", Domain: "example.frontify.test"},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeRevokeFailed))
}

func TestRevoke_NoAccessToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.authenticator.Revoke(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeRevokeFailed))
}
