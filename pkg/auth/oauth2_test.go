package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontify/authenticator-go/pkg/auth"
	"github.com/frontify/authenticator-go/pkg/auth/types"
)

func TestOAuth2Token(t *testing.T) {
	token := validToken()

	converted := auth.OAuth2Token(token)
	require.NotNil(t, converted)

	assert.Equal(t, "at1", converted.AccessToken)
	assert.Equal(t, "rt1", converted.RefreshToken)
	assert.Equal(t, "Bearer", converted.TokenType)
	assert.True(t, converted.Expiry.Equal(token.ExpiresAt()))
	assert.True(t, converted.Valid())

	assert.Nil(t, auth.OAuth2Token(nil))
}

func TestTokenSource_ValidToken(t *testing.T) {
	f := newFixture(t)

	source := f.authenticator.TokenSource(context.Background(), validToken())

	got, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "at1", got.AccessToken)
	assert.Equal(t, 0, f.server.CallCount("/api/oauth/refresh"))
}

func TestTokenSource_RefreshesExpiredToken(t *testing.T) {
	f := newFixture(t)
	f.server.SetTokenResponse("at2", "rt2", 3600)

	expired := validToken()
	expired.IssuedAt = time.Now().Add(-2 * time.Hour)

	source := f.authenticator.TokenSource(context.Background(), expired)

	got, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)
	assert.Equal(t, 1, f.server.CallCount("/api/oauth/refresh"))

	// The refreshed token is retained: a second call does not refresh again.
	got, err = source.Token()
	require.NoError(t, err)
	assert.Equal(t, "at2", got.AccessToken)
	assert.Equal(t, 1, f.server.CallCount("/api/oauth/refresh"))
}

func TestTokenSource_RefreshFailure(t *testing.T) {
	f := newFixture(t)
	f.server.FailRefresh(true)

	expired := validToken()
	expired.IssuedAt = time.Now().Add(-2 * time.Hour)

	source := f.authenticator.TokenSource(context.Background(), expired)

	_, err := source.Token()
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeRefreshFailed))
}

func TestTokenSource_NoToken(t *testing.T) {
	f := newFixture(t)

	source := f.authenticator.TokenSource(context.Background(), nil)

	_, err := source.Token()
	require.Error(t, err)
}
