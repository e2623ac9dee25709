package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers forged signatures, malformed envelopes, and
	// missing subject claims. Clients should log in again.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token's exp claim has passed.
	// Distinct from ErrInvalidToken so callers can route clients to the
	// refresh flow instead of a full re-login.
	ErrTokenExpired = errors.New("token expired")
)

// TokenIssuer mints and validates signed, time-bounded bearer tokens. Tokens
// are stateless: validity is a function of signature and expiry only, with
// no server-side session table.
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer for the given HMAC secret and
// algorithm identifier (HS256, HS384, or HS512). ttl is the lifetime applied
// to every issued token.
func NewTokenIssuer(secret, algorithm string, ttl time.Duration) (*TokenIssuer, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q: only HMAC variants are allowed", algorithm)
	}
	return &TokenIssuer{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
	}, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue creates a signed token with sub=subject and exp=now+ttl.
func (t *TokenIssuer) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(t.method, claims)
	return token.SignedString(t.secret)
}

// Verify validates the token signature and expiry and returns the subject.
// Expired tokens fail with ErrTokenExpired; every other failure mode (bad
// signature, malformed structure, wrong algorithm, missing subject) collapses
// to ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != t.method.Alg() {
		return nil, errors.New("unexpected signing method")
	}
	return t.secret, nil
}
