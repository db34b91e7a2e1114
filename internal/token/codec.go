// Package token signs and verifies booking-intent tokens. A token carries the
// full booking payload, so no pending record exists anywhere until the link is
// opened; replay protection is the reservation store's job, not ours.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Namespace distinguishes booking-confirmation tokens from anything else
// signed with the same secret.
const namespace = "email-confirm-salt"

var (
	ErrInvalidToken = errors.New("token invalid")
	ErrExpiredToken = errors.New("token expired")
)

type bookingClaims struct {
	Payload map[string]string `json:"payload"`
	Salt    string            `json:"salt"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithNow overrides the codec's clock. Tests use it to pin issue and decode
// times to exact instants.
func (c *Codec) WithNow(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Encode signs the payload with an issued-at timestamp. Expiry is not baked
// into the token; Decode applies the max age supplied by the caller, the same
// way the window would be enforced server-side for a stored pending record.
func (c *Codec) Encode(payload map[string]string) (string, error) {
	claims := bookingClaims{
		Payload: payload,
		Salt:    namespace,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Decode verifies the signature and namespace and returns the exact payload.
// A token aged exactly maxAge is still accepted; one second older is not.
func (c *Codec) Decode(tokenString string, maxAge time.Duration) (map[string]string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &bookingClaims{},
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*bookingClaims)
	if !ok || claims.Salt != namespace || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if c.now().Sub(claims.IssuedAt.Time) > maxAge {
		return nil, ErrExpiredToken
	}
	return claims.Payload, nil
}
