package jwtx

import (
	"errors"
	"fmt"
)

// Verification failures. ErrUnknownKID and ErrAlgMismatch wrap ErrInvalidSig,
// so callers that only care about integrity can match on ErrInvalidSig.
var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrUnknownKID  = fmt.Errorf("%w: unknown kid", ErrInvalidSig)
	ErrAlgMismatch = fmt.Errorf("%w: algorithm mismatch", ErrInvalidSig)

	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Reason maps a verification error onto a short, stable label suitable for
// logs and metric labels. It never includes token material.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownKID):
		return "unknown_kid"
	case errors.Is(err, ErrAlgMismatch):
		return "alg_mismatch"
	case errors.Is(err, ErrInvalidSig):
		return "invalid_signature"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrIssuer):
		return "issuer"
	case errors.Is(err, ErrInvalidClaim):
		return "invalid_claims"
	default:
		return "other"
	}
}
