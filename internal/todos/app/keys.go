package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager for the configured algorithm.
//
// HS256 signs with AUTH_SECRET (or the contents of AUTH_SECRET_FILE), every
// replica sharing the secret accepts the others' tokens. RS256, ES256 and
// EdDSA load AUTH_PRIVATE_KEY_FILE when set. Without it AUTH_NUM_KEYS
// ephemeral keys are generated, and all tokens become invalid when the
// process restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		NumKeys:   cfg.NumKeys,
		RSABits:   cfg.RSABits,
	}

	switch {
	case cfg.Algorithm == jwtx.AlgorithmHS256:
		secret, err := readSecret(cfg)
		if err != nil {
			return nil, err
		}
		opts.Secret = secret

	case cfg.PrivateKeyFile != "":
		pemKey, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		opts.PrivateKeyPEM = pemKey
		logger.Info("loading signing key", "algorithm", cfg.Algorithm, "path", cfg.PrivateKeyFile)

	default:
		logger.Warn("using ephemeral signing keys, tokens will not survive a restart",
			"algorithm", cfg.Algorithm,
			"num_keys", max(cfg.NumKeys, 1),
		)
	}

	km, err := jwtx.NewKeyManager(opts)
	if err != nil {
		return nil, err
	}

	kids := make([]string, 0, len(km.Signers()))
	for _, s := range km.Signers() {
		kids = append(kids, s.KID())
	}
	logger.Info("signing keys ready", "algorithm", km.Algorithm(), "kids", kids, "issuer", cfg.Issuer)
	return km, nil
}

func readSecret(cfg Config) ([]byte, error) {
	if cfg.Secret != "" {
		return []byte(cfg.Secret), nil
	}
	b, err := os.ReadFile(cfg.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	secret := strings.TrimSpace(string(b))
	if secret == "" {
		return nil, fmt.Errorf("secret file %s is empty", cfg.SecretFile)
	}
	return []byte(secret), nil
}
