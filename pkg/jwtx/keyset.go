package jwtx

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type verificationKey struct {
	alg string
	key any
}

// KeySet maps key ids to verification keys. Each kid is pinned to exactly one
// algorithm, which is what stops a token from picking its own alg.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]verificationKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]verificationKey)}
}

// Add registers key under kid for tokens signed with alg.
func (k *KeySet) Add(kid, alg string, key any) error {
	if kid == "" || alg == "" || key == nil {
		return errors.New("jwtx: kid, alg and key are required")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[kid]; exists {
		return fmt.Errorf("jwtx: duplicate kid %q", kid)
	}
	k.keys[kid] = verificationKey{alg: alg, key: key}
	return nil
}

// AddSigner registers the verification half of s.
func (k *KeySet) AddSigner(s Signer) error {
	return k.Add(s.KID(), s.Alg(), s.VerificationKey())
}

// Remove drops kid. Tokens signed with it stop verifying immediately.
func (k *KeySet) Remove(kid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, kid)
}

// Lookup returns the algorithm and key registered for kid.
func (k *KeySet) Lookup(kid string) (string, any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	vk, ok := k.keys[kid]
	if !ok {
		return "", nil, ErrNoKey
	}
	return vk.alg, vk.key, nil
}

// Algorithms lists the distinct algorithms in the set, sorted.
func (k *KeySet) Algorithms() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	algs := make([]string, 0, len(k.keys))
	for _, vk := range k.keys {
		if !slices.Contains(algs, vk.alg) {
			algs = append(algs, vk.alg)
		}
	}
	slices.Sort(algs)
	return algs
}

func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}
