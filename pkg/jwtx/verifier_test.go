package jwtx_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerify_RoundTripSubjectsAndRoles(t *testing.T) {
	signer := newHSSigner(t, "k1", testSecret)
	v := verifierFor(t, mintTime.Add(time.Minute), signer)

	for _, subject := range []string{"1", "2", "9007199254740993"} {
		for _, role := range []string{"USER", "ADMIN"} {
			t.Run(fmt.Sprintf("%s/%s", subject, role), func(t *testing.T) {
				claims, err := v.Verify(mint(t, signer, subject, role, mintTime))
				require.NoError(t, err)
				require.Equal(t, subject, claims.Subject)
				require.Equal(t, role, claims.Role)
			})
		}
	}
}

func TestVerify_TTLBoundary(t *testing.T) {
	signer := newHSSigner(t, "k1", testSecret)
	token := mint(t, signer, "1", "USER", mintTime)

	tests := []struct {
		name string
		now  time.Time
		want error
	}{
		{"fresh", mintTime, nil},
		{"one second before expiry", mintTime.Add(jwtx.DefaultSessionTTL - time.Second), nil},
		{"at expiry", mintTime.Add(jwtx.DefaultSessionTTL), jwtx.ErrExpired},
		{"one second after expiry", mintTime.Add(jwtx.DefaultSessionTTL + time.Second), jwtx.ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifierFor(t, tt.now, signer).Verify(token)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, "expired", jwtx.Reason(err))
		})
	}
}

func TestVerify_SingleBitFlipsRejected(t *testing.T) {
	edPEM, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	ed, err := jwtx.NewSignerEdDSA("k-ed", edPEM)
	require.NoError(t, err)

	for _, signer := range []jwtx.Signer{newHSSigner(t, "k-hs", testSecret), ed} {
		t.Run(signer.Alg(), func(t *testing.T) {
			token := mint(t, signer, "5", "USER", mintTime)
			v := verifierFor(t, mintTime.Add(time.Minute), signer)
			_, err := v.Verify(token)
			require.NoError(t, err)

			raw := []byte(token)
			for i := range raw {
				for bit := range 8 {
					flipped := append([]byte(nil), raw...)
					flipped[i] ^= 1 << bit

					_, err := v.Verify(string(flipped))
					require.Error(t, err, "flip of bit %d at offset %d accepted", bit, i)
				}
			}
		})
	}
}

func TestVerify_SignatureCheckedBeforeExpiry(t *testing.T) {
	signer := newHSSigner(t, "k1", testSecret)
	forger := newHSSigner(t, "k1", []byte(strings.Repeat("f", jwtx.MinHS256SecretLen)))

	// Expired and forged: the integrity failure wins
	forged := mint(t, forger, "1", "ADMIN", mintTime)
	_, err := verifierFor(t, mintTime.Add(48*time.Hour), signer).Verify(forged)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	require.NotErrorIs(t, err, jwtx.ErrExpired)
	require.Equal(t, "invalid_signature", jwtx.Reason(err))
}

func TestVerify_Failures(t *testing.T) {
	hs := newHSSigner(t, "k-hs", testSecret)
	edPEM, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	ed, err := jwtx.NewSignerEdDSA("k-ed", edPEM)
	require.NoError(t, err)

	v := verifierFor(t, mintTime.Add(time.Minute), hs, ed)

	// EdDSA signature presented under the HS256 kid
	confused := func() string {
		tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwtx.NewSessionClaims("1", "USER", testIssuer, time.Hour, mintTime))
		tok.Header["kid"] = "k-hs"
		s, err := tok.SignedString(mustEd25519(t, edPEM))
		require.NoError(t, err)
		return s
	}()

	unsigned := func() string {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewSessionClaims("1", "ADMIN", testIssuer, time.Hour, mintTime))
		tok.Header["kid"] = "k-hs"
		s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		return s
	}()

	wrongIssuer := func() string {
		s, err := hs.Sign(jwtx.NewSessionClaims("1", "USER", "elsewhere", time.Hour, mintTime))
		require.NoError(t, err)
		return s
	}()

	noRole := func() string {
		s, err := hs.Sign(jwtx.NewSessionClaims("1", "", testIssuer, time.Hour, mintTime))
		require.NoError(t, err)
		return s
	}()

	unknownKID := mint(t, newHSSigner(t, "k-gone", testSecret), "1", "USER", mintTime)

	tests := []struct {
		name   string
		token  string
		want   error
		reason string
	}{
		{"empty", "", jwtx.ErrMalformed, "malformed"},
		{"garbage", "not-a-jwt", jwtx.ErrMalformed, "malformed"},
		{"two segments", "a.b", jwtx.ErrMalformed, "malformed"},
		{"unknown kid", unknownKID, jwtx.ErrUnknownKID, "unknown_kid"},
		{"alg pinned to kid", confused, jwtx.ErrAlgMismatch, "alg_mismatch"},
		{"alg none", unsigned, jwtx.ErrInvalidSig, "invalid_signature"},
		{"wrong issuer", wrongIssuer, jwtx.ErrIssuer, "issuer"},
		{"missing role", noRole, jwtx.ErrInvalidClaim, "invalid_claims"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.reason, jwtx.Reason(err))
		})
	}

	t.Run("kid mismatch still counts as a signature failure", func(t *testing.T) {
		_, err := v.Verify(unknownKID)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})
}

func TestVerify_RemovedKeyStopsVerifying(t *testing.T) {
	signer := newHSSigner(t, "k1", testSecret)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	v := jwtx.NewVerifier(keys, testIssuer, jwtx.WithClock(fixedClock(mintTime)))

	token := mint(t, signer, "1", "USER", mintTime)
	_, err := v.Verify(token)
	require.NoError(t, err)

	keys.Remove("k1")
	_, err = v.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestReason(t *testing.T) {
	require.Equal(t, "ok", jwtx.Reason(nil))
	require.Equal(t, "other", jwtx.Reason(errors.New("boom")))
	require.Equal(t, "not_yet_valid", jwtx.Reason(jwtx.ErrNotYetValid))
	require.Equal(t, "malformed", jwtx.Reason(fmt.Errorf("wrapped: %w", jwtx.ErrMalformed)))
}

func mustEd25519(t *testing.T, pemKey []byte) any {
	t.Helper()
	key, err := cryptox.ParsePrivateKeyPEM(pemKey)
	require.NoError(t, err)
	return key
}
