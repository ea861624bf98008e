package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretLen is the shortest HMAC secret accepted, matching the
// SHA-256 block output so the key is not the weak link.
const MinHS256SecretLen = 32

var ErrWeakSecret = fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinHS256SecretLen)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)

	// VerificationKey is the key a verifier needs for this signer's tokens:
	// the public half for asymmetric algorithms, the secret for HS256.
	VerificationKey() any
}

type methodSigner struct {
	kid    string
	method jwt.SigningMethod
	key    any
	verify any
}

func (s *methodSigner) Alg() string          { return s.method.Alg() }
func (s *methodSigner) KID() string          { return s.kid }
func (s *methodSigner) VerificationKey() any { return s.verify }

func (s *methodSigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign %s: %w", s.method.Alg(), err)
	}
	return signed, nil
}

// NewSignerHS256 creates an HMAC-SHA256 signer. Secrets shorter than
// MinHS256SecretLen are refused.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}
	if len(secret) < MinHS256SecretLen {
		return nil, ErrWeakSecret
	}
	key := append([]byte(nil), secret...)
	return &methodSigner{kid: kid, method: jwt.SigningMethodHS256, key: key, verify: key}, nil
}

// NewSignerEdDSA creates an EdDSA signer from an Ed25519 PKCS8 PEM key.
func NewSignerEdDSA(kid string, pemKey []byte) (Signer, error) {
	priv, err := parseSigningKey(kid, pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtx: EdDSA needs an Ed25519 key, got %T", priv)
	}
	return &methodSigner{kid: kid, method: jwt.SigningMethodEdDSA, key: key, verify: key.Public()}, nil
}

// NewSignerES256 creates an ES256 signer from an ECDSA P-256 PEM key.
func NewSignerES256(kid string, pemKey []byte) (Signer, error) {
	priv, err := parseSigningKey(kid, pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtx: ES256 needs an ECDSA key, got %T", priv)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("jwtx: ES256 needs curve P-256, got %s", key.Curve.Params().Name)
	}
	return &methodSigner{kid: kid, method: jwt.SigningMethodES256, key: key, verify: &key.PublicKey}, nil
}

// NewSignerRS256 creates an RS256 signer from an RSA PEM key (PKCS1 or PKCS8).
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	priv, err := parseSigningKey(kid, pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtx: RS256 needs an RSA key, got %T", priv)
	}
	if key.N.BitLen() < cryptox.MinRSABits {
		return nil, fmt.Errorf("jwtx: RS256 key is %d bits, need at least %d", key.N.BitLen(), cryptox.MinRSABits)
	}
	return &methodSigner{kid: kid, method: jwt.SigningMethodRS256, key: key, verify: &key.PublicKey}, nil
}

func parseSigningKey(kid string, pemKey []byte) (any, error) {
	if kid == "" {
		return nil, errors.New("jwtx: kid is required")
	}
	priv, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return priv, nil
}
