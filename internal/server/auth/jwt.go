// Package auth implements minting and verification of signed access tokens.
// An Issuer is a pure function of its secret, the input, and the clock; it
// keeps no state and touches no storage. Stolen access tokens cannot be
// revoked; the short validity window is the sole mitigation.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jaeha-dev/inklings/internal/common"
)

// Claims carries the standard registered claims plus the subject's UserID.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Issuer mints and verifies HS256-signed access tokens. The signing secret
// is injected at construction; ambient environment lookups are deliberately
// avoided in the request path.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer returns an Issuer signing with secret, issuing tokens valid for
// ttl. An empty secret is tolerated here but fails every Mint/Verify call
// with common.ErrNoSecretKey.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

// TTL returns the configured access-token validity duration.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Mint produces a signed token embedding the subject's user id, the issue
// instant, and the expiry instant.
func (i *Issuer) Mint(userID string) (string, error) {
	if len(i.secret) == 0 {
		return "", common.ErrNoSecretKey
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify parses and validates tokenString and returns its claims.
// Expired tokens yield common.ErrTokenExpired; any other defect (malformed
// input, wrong signature, wrong algorithm) yields common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, common.ErrNoSecretKey
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
