package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

func NewRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewCSRFToken() (string, error) {
	return NewRandomString(32)
}

// TokensEqual compares two secrets in constant time so the comparison does
// not leak prefix-match length through response timing.
func TokensEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
