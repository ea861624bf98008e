package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "tabtodo-test"

var (
	// Whole seconds, NumericDate drops anything finer
	mintTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	testSecret = []byte(strings.Repeat("s", jwtx.MinHS256SecretLen))
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newHSSigner(t *testing.T, kid string, secret []byte) jwtx.Signer {
	t.Helper()
	s, err := jwtx.NewSignerHS256(kid, secret)
	require.NoError(t, err)
	return s
}

func mint(t *testing.T, s jwtx.Signer, subject, role string, at time.Time) string {
	t.Helper()
	token, err := s.Sign(jwtx.NewSessionClaims(subject, role, testIssuer, jwtx.DefaultSessionTTL, at))
	require.NoError(t, err)
	return token
}

func verifierFor(t *testing.T, now time.Time, signers ...jwtx.Signer) *jwtx.KeySetVerifier {
	t.Helper()
	keys := jwtx.NewKeySet()
	for _, s := range signers {
		require.NoError(t, keys.AddSigner(s))
	}
	return jwtx.NewVerifier(keys, testIssuer, jwtx.WithClock(fixedClock(now)))
}
