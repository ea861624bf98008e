package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	httpapi "github.com/aussiebroadwan/tabtodo/internal/todos/http"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// maxSessionTTL bounds how long a stolen token stays useful, there is no
// revocation.
const maxSessionTTL = 7 * 24 * time.Hour

// Config is read from an optional YAML file named by TODOS_CONFIG_FILE and
// then from the environment, which wins. Secrets (AUTH_SECRET,
// TODOS_DATABASE_URL, TODOS_ADMIN_PASSWORD) are only read from the
// environment.
type Config struct {
	Issuer         string        `yaml:"issuer"`           // Token iss claim (default: tabtodo)
	Algorithm      string        `yaml:"algorithm"`        // HS256, RS256, ES256, EdDSA (default: EdDSA)
	Secret         string        `yaml:"-"`                // HS256 key, at least 32 bytes
	SecretFile     string        `yaml:"secret_file"`      // Alternative to Secret
	PrivateKeyFile string        `yaml:"private_key_file"` // PEM signing key for the asymmetric algorithms, ephemeral keys when empty
	NumKeys        int           `yaml:"num_keys"`         // Ephemeral keys to generate (default: 1)
	RSABits        int           `yaml:"rsa_bits"`         // Ephemeral RS256 key size (default: 3072)
	SessionTTL     time.Duration `yaml:"session_ttl"`      // Token lifetime (default: 24h)
	PepperFile     string        `yaml:"pepper_file"`      // Password pepper, created when missing (default: ./pepper)

	DatabaseDriver  string        `yaml:"database_driver"` // sqlite or postgres (default: sqlite)
	DatabaseFile    string        `yaml:"database_file"`   // SQLite file (default: ./todos.db)
	DatabaseURL     string        `yaml:"-"`               // PostgreSQL DSN
	DBMaxOpenConns  int           `yaml:"db_max_open_conns"`
	DBConnLifetime  time.Duration `yaml:"db_conn_lifetime"`
	AdminUsername   string        `yaml:"admin_username"` // Bootstrap admin, created on an empty database
	AdminEmail      string        `yaml:"admin_email"`
	AdminPassword   string        `yaml:"-"`
	TrustProxy      bool          `yaml:"trust_proxy"` // Rate limit on X-Forwarded-For instead of the peer address
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Env       string `yaml:"env"`        // dev, staging, prod (default: dev)
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `yaml:"log_format"` // json, text (default: json)
	Port      int    `yaml:"port"`       // HTTP port (default: 8080)

	Security   httpx.SecurityOptions `yaml:"security"`
	RateLimits httpapi.RateLimits    `yaml:"rate_limits"`
}

// DefaultConfig is the configuration before any file or variable is read.
func DefaultConfig() Config {
	return Config{
		Issuer:          "tabtodo",
		Algorithm:       jwtx.AlgorithmEdDSA,
		SessionTTL:      jwtx.DefaultSessionTTL,
		PepperFile:      "pepper",
		DatabaseDriver:  DriverSQLite,
		DatabaseFile:    "todos.db",
		ShutdownTimeout: 10 * time.Second,
		Env:             "dev",
		LogLevel:        "info",
		LogFormat:       "json",
		Port:            8080,
		Security:        httpx.DefaultSecurityOptions(),
		RateLimits:      httpapi.DefaultRateLimits(),
	}
}

// LoadConfig builds the configuration from defaults, the optional file and
// the environment. It does not validate, see Config.Validate.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("TODOS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.Algorithm = getEnvOrDefault("AUTH_ALGORITHM", cfg.Algorithm)
	cfg.Secret = os.Getenv("AUTH_SECRET")
	cfg.SecretFile = getEnvOrDefault("AUTH_SECRET_FILE", cfg.SecretFile)
	cfg.PrivateKeyFile = getEnvOrDefault("AUTH_PRIVATE_KEY_FILE", cfg.PrivateKeyFile)
	cfg.NumKeys = getEnvIntOrDefault("AUTH_NUM_KEYS", cfg.NumKeys)
	cfg.RSABits = getEnvIntOrDefault("AUTH_RSA_BITS", cfg.RSABits)
	cfg.SessionTTL = getEnvDurationOrDefault("AUTH_SESSION_TTL", cfg.SessionTTL)
	cfg.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile)

	cfg.DatabaseDriver = strings.ToLower(getEnvOrDefault("TODOS_DATABASE_DRIVER", cfg.DatabaseDriver))
	cfg.DatabaseFile = getEnvOrDefault("TODOS_DATABASE_FILE", cfg.DatabaseFile)
	cfg.DatabaseURL = os.Getenv("TODOS_DATABASE_URL")
	cfg.DBMaxOpenConns = getEnvIntOrDefault("TODOS_DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBConnLifetime = getEnvDurationOrDefault("TODOS_DB_CONN_LIFETIME", cfg.DBConnLifetime)
	cfg.AdminUsername = getEnvOrDefault("TODOS_ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminEmail = getEnvOrDefault("TODOS_ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = os.Getenv("TODOS_ADMIN_PASSWORD")
	cfg.TrustProxy = getEnvBoolOrDefault("TODOS_TRUST_PROXY", cfg.TrustProxy)
	cfg.ShutdownTimeout = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownTimeout)

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)

	if v := os.Getenv("TODOS_CORS_ORIGINS"); v != "" {
		cfg.Security.AllowedOrigins = splitList(v)
	}
	cfg.Security.CookieName = getEnvOrDefault("TODOS_COOKIE_NAME", cfg.Security.CookieName)
	cfg.Security.CookieInsecure = getEnvBoolOrDefault("TODOS_COOKIE_INSECURE", cfg.Security.CookieInsecure)

	cfg.RateLimits.Auth = httpx.ParseRateLimitFromEnv("AUTH", cfg.RateLimits.Auth)
	cfg.RateLimits.API = httpx.ParseRateLimitFromEnv("API", cfg.RateLimits.API)
	cfg.RateLimits.Public = httpx.ParseRateLimitFromEnv("PUBLIC", cfg.RateLimits.Public)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every setting the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Issuer) == "" {
		add("issuer must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		add("port %d out of range", c.Port)
	}
	if c.SessionTTL <= 0 || c.SessionTTL > maxSessionTTL {
		add("session ttl %s must be between 1s and %s", c.SessionTTL, maxSessionTTL)
	}

	switch c.Algorithm {
	case jwtx.AlgorithmHS256:
		if c.Secret == "" && c.SecretFile == "" {
			add("HS256 needs AUTH_SECRET or AUTH_SECRET_FILE")
		}
		if c.PrivateKeyFile != "" {
			add("private key file is only used by RS256, ES256 and EdDSA")
		}
	case jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA:
		if c.Secret != "" || c.SecretFile != "" {
			add("a secret is only used by HS256")
		}
	default:
		add("unsupported algorithm %q (supported: HS256, RS256, ES256, EdDSA)", c.Algorithm)
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			add("sqlite needs TODOS_DATABASE_FILE")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			add("postgres needs TODOS_DATABASE_URL")
		}
	default:
		add("unknown database driver %q (supported: sqlite, postgres)", c.DatabaseDriver)
	}

	admin := []string{c.AdminUsername, c.AdminEmail, c.AdminPassword}
	if set := countSet(admin); set != 0 && set != len(admin) {
		add("bootstrap admin needs username, email and password together")
	}

	if c.Env == "prod" && c.Security.CookieInsecure {
		add("insecure cookies are not allowed in prod")
	}
	for _, o := range c.Security.AllowedOrigins {
		if o == "*" {
			add("CORS origin \"*\" cannot be combined with credentials, list origins explicitly")
		}
	}

	return errors.Join(errs...)
}

// BootstrapAdmin reports whether an admin account is configured.
func (c Config) BootstrapAdmin() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

func countSet(values []string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
