// Package auth issues and verifies signed session tokens and carries the
// verified identity through request contexts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
)

// Claims is the verified identity carried by a session token. Only UserID
// is required; UserName and Email are denormalized for display.
type Claims struct {
	UserID    string
	UserName  string
	Email     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserName string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Issuer signs tokens with HS256 and verifies them against the same secret.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewIssuer(secret []byte, lifetime time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", common.ErrConfiguration)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%w: token lifetime must be positive", common.ErrConfiguration)
	}
	return &Issuer{secret: secret, lifetime: lifetime, now: time.Now}, nil
}

// Issue signs a token for c.UserID valid for the issuer's lifetime. Any
// IssuedAt, ExpiresAt or ID set on c is ignored.
func (i *Issuer) Issue(c Claims) (string, error) {
	if c.UserID == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrInvalidToken)
	}

	now := i.now().Truncate(time.Second)
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
			ID:        uuid.NewString(),
		},
		UserName: c.UserName,
		Email:    c.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature first and expiry second. It returns
// common.ErrTokenExpired only for an authentic token whose lifetime has
// lapsed; every other failure is common.ErrInvalidToken.
func (i *Issuer) Verify(token string) (*Claims, error) {
	tc := &tokenClaims{}

	_, err := jwt.ParseWithClaims(token, tc,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	case tc.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	c := &Claims{
		UserID:    tc.Subject,
		UserName:  tc.UserName,
		Email:     tc.Email,
		ID:        tc.ID,
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	return c, nil
}
