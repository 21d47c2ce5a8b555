package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierAlphabet is the character set code verifiers are drawn from.
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// verifierLength is the fixed code verifier length.
const verifierLength = 64

// GenerateCodeVerifier returns a 64-character code verifier drawn from the
// alphanumeric alphabet using a cryptographically secure random source.
func GenerateCodeVerifier() (string, error) {
	return randomString(verifierLength, verifierAlphabet)
}

// CodeChallenge derives the PKCE S256 challenge for a verifier:
// base64url(SHA-256(verifier)) without padding, per RFC 7636.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// randomString draws length characters uniformly from alphabet.
// Bytes outside the unbiased range are rejected and redrawn.
func randomString(length int, alphabet string) (string, error) {
	// Largest multiple of len(alphabet) that fits in a byte.
	max := byte(256 - (256 % len(alphabet)))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= max {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
