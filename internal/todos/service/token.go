package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
)

// TokenService mints and verifies session tokens. It does no I/O and holds
// no state beyond the key manager.
type TokenService struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	TTL        time.Duration
	Metrics    *metrics.Metrics

	// Now is the clock for both minting and expiry checks. Defaults to
	// time.Now.
	Now func() time.Time

	verifier *jwtx.KeySetVerifier
}

// NewTokenService returns a codec signing with km. A zero ttl means
// jwtx.DefaultSessionTTL.
func NewTokenService(km *jwtx.KeyManager, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	s := &TokenService{KeyManager: km, Issuer: issuer, TTL: ttl}
	s.verifier = jwtx.NewVerifier(km.KeySet(), issuer, jwtx.WithClock(s.now))
	return s
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Mint issues a token for subjectID with role, valid for TTL from now.
func (s *TokenService) Mint(subjectID int64, role domain.Role) (domain.Token, error) {
	signer := s.KeyManager.Signer()
	if signer == nil {
		return domain.Token{}, errors.New("token: no signing key")
	}

	claims := jwtx.NewSessionClaims(strconv.FormatInt(subjectID, 10), role.String(), s.Issuer, s.TTL, s.now())
	value, err := signer.Sign(claims)
	if err != nil {
		return domain.Token{}, fmt.Errorf("token: sign: %w", err)
	}
	s.Metrics.TokenMinted()

	return domain.Token{
		Value:     value,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		TTL:       s.TTL,
	}, nil
}

// Verify checks raw and returns the identity it carries. Errors match the
// jwtx sentinels, so jwtx.Reason gives a label for them.
func (s *TokenService) Verify(raw string) (domain.Identity, error) {
	id, err := s.verify(raw)
	s.Metrics.TokenVerified(jwtx.Reason(err))
	return id, err
}

func (s *TokenService) verify(raw string) (domain.Identity, error) {
	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return domain.Identity{}, err
	}

	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subject <= 0 {
		return domain.Identity{}, fmt.Errorf("%w: sub %q", jwtx.ErrInvalidClaim, claims.Subject)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: role %q", jwtx.ErrInvalidClaim, claims.Role)
	}

	// Only enabled users are ever issued a token
	return domain.Identity{SubjectID: subject, Role: role, Enabled: true}, nil
}
