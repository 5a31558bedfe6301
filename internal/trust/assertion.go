// Package trust carries an authenticated caller's identity across the
// service boundary between the presentation tier and the data tier. The
// presentation tier signs a short-lived assertion naming the caller's
// email; the data tier verifies it and installs the caller's role before
// any route authorization runs.
package trust

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header is the request header the caller-identity assertion travels in.
const Header = "X-Auth-User"

// DefaultTTL bounds how long a signed assertion is accepted. Assertions
// are minted per outbound request, so the window only needs to cover
// clock skew and transit time.
const DefaultTTL = 2 * time.Minute

// Signer mints and verifies HMAC-signed caller assertions. Both tiers are
// configured with the same secret.
type Signer struct {
	key []byte
	ttl time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{key: []byte(secret), ttl: ttl}
}

// Sign returns a signed assertion naming email as the calling principal.
func (s *Signer) Sign(email string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies an assertion and returns the asserted email. Expired or
// tampered assertions fail; so do tokens signed with any algorithm other
// than the expected HMAC.
func (s *Signer) Parse(assertion string) (string, error) {
	token, err := jwt.ParseWithClaims(assertion, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid assertion")
	}
	return claims.Subject, nil
}
