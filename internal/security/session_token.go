package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenManager signs the session's secondary credential: a compact
// HS256 token carrying the session id, so API clients without a cookie jar
// can present the session via an Authorization bearer header.
type SessionTokenManager struct {
	issuer string
	secret []byte
}

type SessionClaims struct {
	UserID *uint `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

var ErrInvalidSessionToken = errors.New("invalid session token")

func NewSessionTokenManager(issuer, secret string) *SessionTokenManager {
	return &SessionTokenManager{issuer: issuer, secret: []byte(secret)}
}

func (m *SessionTokenManager) Sign(sessionID string, userID *uint, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature, issuer and expiry and returns the claims.
// The embedded session id still has to be resolved against the store; a
// token for a revoked session parses fine but will not authenticate.
func (m *SessionTokenManager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidSessionToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}
