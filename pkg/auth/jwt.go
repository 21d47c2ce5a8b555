package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds claims inspected from a JWT-shaped access token.
// Frontify access tokens are opaque on some instances and JWTs on others;
// inspection is best-effort and never validates the signature.
type TokenClaims struct {
	Subject   string
	Username  string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// InspectToken parses a JWT-shaped access token WITHOUT validation, for
// claim inspection only. It returns an error for malformed tokens, not
// for expired ones or invalid signatures.
func InspectToken(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to extract claims from token")
	}

	out := &TokenClaims{}

	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	}
	if username, ok := claims["preferred_username"].(string); ok {
		out.Username = username
	} else if username, ok := claims["username"].(string); ok {
		out.Username = username
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0)
	}
	if iss, ok := claims["iss"].(string); ok {
		out.Issuer = iss
	}

	return out, nil
}

// TokenExpiry returns the expiry embedded in a JWT-shaped access token,
// or false when the token is opaque or carries no exp claim.
func TokenExpiry(tokenString string) (time.Time, bool) {
	claims, err := InspectToken(tokenString)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}
