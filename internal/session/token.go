// Package session implements the stateless session token used for cookie
// authentication. Tokens are HMAC-SHA256 signed JWTs embedding the user's
// id and email with a fixed short lifetime. The server is the sole issuer
// and verifier; nothing is persisted server-side, so a token stays
// cryptographically valid until its natural expiry even after logout.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when no token was presented at all. Kept distinct
// from ErrInvalidToken so callers can tell "never logged in" (401) apart
// from "tampered or expired" (403).
var ErrNoToken = errors.New("no token provided")

// ErrInvalidToken is returned when a token fails signature verification or
// has expired.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the assertions embedded in a session token. UserID and Email
// are returned verbatim on verification; they are not re-fetched from the
// store at that stage.
type Claims struct {
	UserID int    `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service issues and verifies session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service signing with the given secret. ttl is
// the fixed token lifetime (one hour in the default configuration).
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue produces a signed token asserting the given identity.
func (s *Service) Issue(userID int, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token string and returns the
// embedded claims. An empty string fails with ErrNoToken; any signature or
// expiry failure maps to ErrInvalidToken.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			// Refuse tokens signed with anything but HMAC, including "none".
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return s.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
