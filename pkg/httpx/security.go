package httpx

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// SecurityOptions is the input to NewSecurityConfig.
type SecurityOptions struct {
	// PublicPaths match exactly, PublicPrefixes match the start of the path.
	PublicPaths    []string `yaml:"public_paths"`
	PublicPrefixes []string `yaml:"public_prefixes"`

	// AllowedOrigins may send credentialed cross-origin requests.
	AllowedOrigins []string `yaml:"allowed_origins"`

	CookieName string `yaml:"cookie_name"`
	// CookieInsecure drops the Secure attribute, for plain HTTP development
	// setups only.
	CookieInsecure bool `yaml:"cookie_insecure"`
}

// DefaultSecurityOptions opens the auth endpoints, health probes, metrics
// and the API docs. Everything else needs a token.
func DefaultSecurityOptions() SecurityOptions {
	return SecurityOptions{
		PublicPaths:    []string{"/livez", "/readyz", "/metrics"},
		PublicPrefixes: []string{"/api/v1/auth/", "/swagger/"},
		CookieName:     DefaultCookieName,
	}
}

const DefaultCookieName = "jwt"

// SecurityConfig decides which requests skip authentication and how the
// session cookie looks. It is built once at startup and never changes, so
// it is safe to share between goroutines.
type SecurityConfig struct {
	publicPaths    map[string]struct{}
	publicPrefixes []string
	allowedOrigins map[string]struct{}
	cookieName     string
	cookieSecure   bool
}

func NewSecurityConfig(opts SecurityOptions) SecurityConfig {
	c := SecurityConfig{
		publicPaths:    make(map[string]struct{}, len(opts.PublicPaths)),
		publicPrefixes: slices.Clone(opts.PublicPrefixes),
		allowedOrigins: make(map[string]struct{}, len(opts.AllowedOrigins)),
		cookieName:     opts.CookieName,
		cookieSecure:   !opts.CookieInsecure,
	}
	for _, p := range opts.PublicPaths {
		c.publicPaths[p] = struct{}{}
	}
	for _, o := range opts.AllowedOrigins {
		c.allowedOrigins[strings.TrimRight(o, "/")] = struct{}{}
	}
	if c.cookieName == "" {
		c.cookieName = DefaultCookieName
	}
	return c
}

// IsPublic reports whether path may be served without a token.
func (c SecurityConfig) IsPublic(path string) bool {
	if _, ok := c.publicPaths[path]; ok {
		return true
	}
	for _, p := range c.publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (c SecurityConfig) OriginAllowed(origin string) bool {
	_, ok := c.allowedOrigins[origin]
	return ok
}

func (c SecurityConfig) CookieName() string { return c.cookieName }

// SessionCookie carries token for ttl. It is never readable from scripts and
// never sent cross-site.
func (c SecurityConfig) SessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     c.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearSessionCookie tells the browser to drop the session cookie. The token
// itself stays valid until it expires.
func (c SecurityConfig) ClearSessionCookie() *http.Cookie {
	ck := c.SessionCookie("", 0)
	ck.MaxAge = -1 // serialised as Max-Age=0
	return ck
}
