package jwtx

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmHS256 = "HS256"
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// KeyManagerOptions selects where signing keys come from. HS256 always uses
// Secret. The asymmetric algorithms use PrivateKeyPEM when given, otherwise
// NumKeys ephemeral keys are generated and vanish with the process.
type KeyManagerOptions struct {
	Algorithm string

	Secret        []byte
	PrivateKeyPEM []byte

	// NumKeys applies to ephemeral keys only. Defaults to 1, capped at 10.
	NumKeys int

	// RSABits applies to ephemeral RS256 keys. Defaults to 3072.
	RSABits int
}

// KeyManager owns the signing keys of this instance and the KeySet used to
// verify what they sign. With several signers one is picked at random per
// token.
type KeyManager struct {
	algorithm string
	keys      *KeySet

	mu      sync.RWMutex
	signers []Signer
}

// NewKeyManager builds the signers described by opts. Any misconfiguration
// is returned as an error so the caller can refuse to start.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	signers, err := buildSigners(opts)
	if err != nil {
		return nil, err
	}

	km := &KeyManager{algorithm: opts.Algorithm, keys: NewKeySet()}
	for _, s := range signers {
		if err := km.AddSigner(s); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func buildSigners(opts KeyManagerOptions) ([]Signer, error) {
	switch opts.Algorithm {
	case AlgorithmHS256:
		if len(opts.Secret) == 0 {
			return nil, errors.New("jwtx: HS256 requires a secret")
		}
		s, err := NewSignerHS256("hs256-"+cryptox.Fingerprint(opts.Secret)[:12], opts.Secret)
		if err != nil {
			return nil, err
		}
		return []Signer{s}, nil

	case AlgorithmRS256, AlgorithmES256, AlgorithmEdDSA:
		if len(opts.PrivateKeyPEM) > 0 {
			s, err := signerFromPEM(opts.Algorithm, opts.PrivateKeyPEM)
			if err != nil {
				return nil, err
			}
			return []Signer{s}, nil
		}
		return ephemeralSigners(opts)

	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: HS256, RS256, ES256, EdDSA)", opts.Algorithm)
	}
}

// signerFromPEM derives the kid from the public key so every replica loading
// the same file agrees on it.
func signerFromPEM(alg string, pemKey []byte) (Signer, error) {
	priv, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	fp, err := cryptox.PublicKeyFingerprint(priv.Public())
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return newSigner(alg, strings.ToLower(alg)+"-"+fp[:12], pemKey)
}

func ephemeralSigners(opts KeyManagerOptions) ([]Signer, error) {
	n := min(max(opts.NumKeys, 1), 10)

	signers := make([]Signer, 0, n)
	for i := range n {
		pemKey, err := generateKey(opts.Algorithm, opts.RSABits)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate key %d: %w", i+1, err)
		}
		token, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate kid: %w", err)
		}
		s, err := newSigner(opts.Algorithm, "tabtodo-"+token, pemKey)
		if err != nil {
			return nil, err
		}
		signers = append(signers, s)
	}
	return signers, nil
}

func generateKey(alg string, rsaBits int) ([]byte, error) {
	switch alg {
	case AlgorithmRS256:
		if rsaBits == 0 {
			rsaBits = 3072
		}
		return cryptox.GenerateRSAKey(rsaBits)
	case AlgorithmES256:
		return cryptox.GenerateES256Key()
	default:
		return cryptox.GenerateEd25519Key()
	}
}

func newSigner(alg, kid string, pemKey []byte) (Signer, error) {
	switch alg {
	case AlgorithmRS256:
		return NewSignerRS256(kid, pemKey)
	case AlgorithmES256:
		return NewSignerES256(kid, pemKey)
	case AlgorithmEdDSA:
		return NewSignerEdDSA(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
	}
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string { return km.algorithm }

// KeySet returns the verification keys for every signer.
func (km *KeyManager) KeySet() *KeySet { return km.keys }

// IsReady reports whether at least one signer is loaded.
func (km *KeyManager) IsReady() bool {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers) > 0
}

// Signer returns one of the active signers, or nil when there are none.
func (km *KeyManager) Signer() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))] // #nosec G404 - load spreading, not security
	}
}

// Signers returns a copy of the active signers.
func (km *KeyManager) Signers() []Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]Signer(nil), km.signers...)
}

// AddSigner makes s available for signing and registers its key for
// verification. Its algorithm must match the manager's.
func (km *KeyManager) AddSigner(s Signer) error {
	if s == nil {
		return errors.New("jwtx: signer cannot be nil")
	}
	if s.Alg() != km.algorithm {
		return fmt.Errorf("jwtx: signer uses %s, manager uses %s", s.Alg(), km.algorithm)
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.keys.AddSigner(s); err != nil {
		return err
	}
	km.signers = append(km.signers, s)
	return nil
}
