// Package token issues and verifies session tokens and computes password
// reset tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// algorithm, malformed input, expiry.
var ErrInvalidToken = errors.New("invalid or expired token")

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// Claims carries the user identifier alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Service signs and verifies session tokens with a shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL is the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue produces a signed, time-bounded credential embedding the user id and
// issue time.
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded user id and
// issue time. It does not check password-change invalidation; that is
// StaleRelativeTo, applied by the caller against the current user record.
func (s *Service) Verify(tokenString string) (userID string, issuedAt time.Time, err error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid || claims.IssuedAt == nil {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.UserID, claims.IssuedAt.Time, nil
}

// StaleRelativeTo reports whether a token issued at issuedAt predates the
// most recent password change. A stale token is rejected even when otherwise
// valid; this closes the replay window after a compromise-triggered password
// change. Comparison is at second granularity, matching the token's issued-at
// resolution.
func StaleRelativeTo(issuedAt time.Time, passwordChangedAt *time.Time) bool {
	if passwordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < passwordChangedAt.Unix()
}

// NewResetToken generates a random one-time token. Only the hash is stored;
// the plaintext is disclosed once to the user and never persisted.
func NewResetToken() (plaintext, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plaintext = hex.EncodeToString(raw)
	return plaintext, HashResetToken(plaintext), nil
}

// HashResetToken computes the stored form of a reset token.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
