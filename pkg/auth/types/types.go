// Package types defines common types used across the authenticator packages.
package types

import (
	"strings"
	"time"
)

// Config describes one authorization attempt against a Frontify instance.
//
// Domain may be left empty, in which case the authorization flow runs a
// domain-discovery phase first and fills it in. ClientID and Scopes are
// fixed for the duration of a flow.
type Config struct {
	// Domain is the Frontify instance to authorize against, without a
	// scheme prefix or trailing slash (e.g. "weare.frontify.com").
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`
	// ClientID is the OAuth2 client identifier.
	ClientID string `yaml:"client_id" json:"client_id"`
	// Scopes are the requested OAuth2 scopes, in order.
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// NormalizedDomain returns the configured domain with any scheme prefix
// and trailing slashes stripped.
func (c *Config) NormalizedDomain() string {
	return NormalizeDomain(c.Domain)
}

// NormalizeDomain strips a leading http:// or https:// prefix and any
// trailing slashes from a domain. It is idempotent.
func NormalizeDomain(domain string) string {
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

// AuthorizationURL is the ephemeral product of one authorization attempt.
// The verifier must never leave the process except in the final token
// exchange; the session ID correlates the popup-side authorization with
// the session poll.
type AuthorizationURL struct {
	URL          string
	CodeVerifier string
	SessionID    string
}

// BearerToken holds the credential returned by a token exchange or refresh.
type BearerToken struct {
	// TokenType is always "Bearer".
	TokenType string `json:"token_type" yaml:"token_type"`
	// ExpiresIn is the token lifetime in seconds from issuance.
	ExpiresIn int `json:"expires_in" yaml:"expires_in"`
	// AccessToken is the credential presented on API calls.
	AccessToken string `json:"access_token" yaml:"access_token"`
	// RefreshToken is used to obtain a new access token.
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	// Domain is the normalized instance domain the token was issued by.
	Domain string `json:"domain" yaml:"domain"`
}

// Token is the result of a completed authorization, refresh, or revocation.
// It is immutable once returned; the caller owns its lifecycle.
type Token struct {
	Bearer   BearerToken `json:"bearer_token" yaml:"bearer_token"`
	ClientID string      `json:"client_id" yaml:"client_id"`
	Scopes   []string    `json:"scopes" yaml:"scopes"`

	// IssuedAt is stamped when the token is created locally. It is not
	// part of the wire format; it anchors ExpiresIn for expiry checks.
	IssuedAt time.Time `json:"-" yaml:"-"`
}

// ExpiresAt returns the expiry instant derived from IssuedAt and
// ExpiresIn, or the zero time if either is unknown.
func (t *Token) ExpiresAt() time.Time {
	if t.IssuedAt.IsZero() || t.Bearer.ExpiresIn == 0 {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.Bearer.ExpiresIn) * time.Second)
}

// IsExpired returns true if the token is known to have expired. Tokens
// without expiry information are never reported as expired.
func (t *Token) IsExpired() bool {
	exp := t.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	// 30 second buffer to account for clock skew
	return time.Now().Add(30 * time.Second).After(exp)
}

// IsValid returns true if the token carries a credential and is not
// known to have expired.
func (t *Token) IsValid() bool {
	return t.Bearer.AccessToken != "" && !t.IsExpired()
}
