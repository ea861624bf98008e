package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// KeySetVerifier checks tokens against a KeySet. The checks run in a fixed
// order: structure and signature, then exp/nbf, then the remaining claims.
// A tampered token is therefore reported as ErrInvalidSig even when it has
// also expired.
type KeySetVerifier struct {
	keys   *KeySet
	issuer string
	now    func() time.Time
}

type VerifierOption func(*KeySetVerifier)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *KeySetVerifier) { v.now = now }
}

// NewVerifier returns a verifier for tokens issued by issuer. An empty issuer
// disables the iss check.
func NewVerifier(keys *KeySet, issuer string, opts ...VerifierOption) *KeySetVerifier {
	v := &KeySetVerifier{keys: keys, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *KeySetVerifier) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrMalformed
	}

	// Claims validation is ours to do after the signature, with our clock
	parser := jwt.NewParser(
		jwt.WithValidMethods(v.keys.Algorithms()),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, v.keyFunc); err != nil {
		return Claims{}, classify(err)
	}

	if err := claims.ValidateExpiry(v.now()); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateSubject(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (v *KeySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}

	alg, key, err := v.keys.Lookup(kid)
	if err != nil {
		return nil, ErrUnknownKID
	}
	if t.Method.Alg() != alg {
		return nil, ErrAlgMismatch
	}
	return key, nil
}

// classify folds golang-jwt's error taxonomy into ours.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return ErrUnknownKID
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
