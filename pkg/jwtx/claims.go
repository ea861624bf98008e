package jwtx

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a minted session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Claims is the claim set carried by session tokens.
type Claims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// NewSessionClaims builds the claims for a token issued at now. Timestamps
// have whole-second precision, so exp is always exactly iat+ttl.
func NewSessionClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	iat := now.UTC().Truncate(time.Second)
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
			ID:        idx.New(),
		},
		Role: role,
	}
}

// ValidateExpiry accepts the token iff now < exp (and now >= nbf when set).
// A token without exp is rejected, session tokens always carry one.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp", ErrInvalidClaim)
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateSubject requires a non-empty sub and role.
func (c *Claims) ValidateSubject() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing sub", ErrInvalidClaim)
	}
	if c.Role == "" {
		return fmt.Errorf("%w: missing role", ErrInvalidClaim)
	}
	return nil
}
