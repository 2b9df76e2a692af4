// Package auth issues and resolves bearer credentials and carries the
// authenticated principal through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// Tokens signs and verifies HS256 bearer tokens with a process-wide key.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// claims is the token payload.
type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// NewTokens constructs Tokens. The key is copied; it must be loaded from
// configuration, never embedded.
func NewTokens(key []byte, issuer string, ttl time.Duration) (*Tokens, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Tokens{
		key:    append([]byte(nil), key...),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for p.
func (t *Tokens) Issue(p model.Principal) (string, error) {
	if _, err := model.ParseRole(string(p.Role)); err != nil {
		return "", err
	}
	now := t.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    t.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: string(p.Role),
	})
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies credential and returns the principal it names.
// Every failure wraps model.ErrUnauthenticated.
func (t *Tokens) Resolve(_ context.Context, credential string) (model.Principal, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return model.Principal{}, fmt.Errorf("%w: no token provided", model.ErrUnauthenticated)
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(credential, &parsed, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return model.Principal{}, mapJWTError(err)
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return model.Principal{}, fmt.Errorf("%w: token subject is required", model.ErrUnauthenticated)
	}
	role, err := model.ParseRole(parsed.Role)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: token role is invalid", model.ErrUnauthenticated)
	}
	return model.Principal{ID: parsed.Subject, Role: role}, nil
}

// mapJWTError translates jwt library errors to unauthenticated errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", model.ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: token signature is invalid", model.ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: token alg is invalid", model.ErrUnauthenticated)
	default:
		return fmt.Errorf("%w: invalid token", model.ErrUnauthenticated)
	}
}
