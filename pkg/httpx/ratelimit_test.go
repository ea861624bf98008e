package httpx_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractors(t *testing.T) {
	req := requestFrom("192.168.1.1:12345")
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

	t.Run("peer address ignores forwarding headers", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("forwarded prefers X-Forwarded-For", func(t *testing.T) {
		require.Equal(t, "203.0.113.1", httpx.ForwardedIPKeyExtractor(req))
	})

	t.Run("forwarded falls back to X-Real-IP", func(t *testing.T) {
		r := requestFrom("192.168.1.1:12345")
		r.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.ForwardedIPKeyExtractor(r))
	})

	t.Run("forwarded falls back to peer", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.ForwardedIPKeyExtractor(requestFrom("192.168.1.1:1")))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username", "login")

	tests := []struct {
		name string
		body string
		want string
	}{
		{"first field", `{"username":"Alice","login":"bob"}`, "alice"},
		{"fallback field", `{"login":" Bob "}`, "bob"},
		{"non string", `{"username":42}`, ""},
		{"not json", `username=alice`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			require.Equal(t, tt.want, extract(req))

			// The handler still gets the whole body
			rest, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.Equal(t, tt.body, string(rest))
		})
	}
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.JSONFieldKeyExtractor("username"))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", extract(req))

	// Empty parts are skipped
	require.Equal(t, "192.168.1.1", extract(requestFrom("192.168.1.1:12345")))
}

func TestIdentityKeyExtractor(t *testing.T) {
	extract := httpx.IdentityKeyExtractor(func(id string) string { return "user:" + id })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, extract(req))

	req = req.WithContext(httpx.WithIdentity(req.Context(), "42"))
	require.Equal(t, "user:42", extract(req))
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests over the burst", func(t *testing.T) {
		clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
		rl := httpx.NewRateLimiter(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3},
			httpx.IPKeyExtractor, httpx.WithRateLimitClock(clock.Now))
		h := rl.Middleware()(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code, "request %d", i+1)
		}

		rec := serve(h, requestFrom("192.168.1.1:1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "20", rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
		require.Contains(t, rec.Body.String(), "error_description")

		// One token back after a third of the window
		clock.Advance(20 * time.Second)
		require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, requestFrom("192.168.1.1:1")).Code)
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2})(okHandler)

		for range 2 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code)
		}
		require.Equal(t, http.StatusTooManyRequests, serve(h, requestFrom("192.168.1.1:1")).Code)
		require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.2:1")).Code)
	})

	t.Run("burst defaults to the request count", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 4, Window: time.Hour})(okHandler)

		for range 4 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.1:1")).Code)
		}
		require.Equal(t, http.StatusTooManyRequests, serve(h, requestFrom("10.0.0.1:1")).Code)
	})

	t.Run("empty key is not limited", func(t *testing.T) {
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute},
			func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.1:1")).Code)
		}
	})

	t.Run("disabled config passes everything", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{})(okHandler)
		for range 10 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("10.0.0.1:1")).Code)
		}
	})

	t.Run("idle buckets are swept", func(t *testing.T) {
		clock := &stepClock{now: time.Unix(1_700_000_000, 0)}
		rl := httpx.NewRateLimiter(httpx.RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute},
			httpx.IPKeyExtractor, httpx.WithRateLimitClock(clock.Now))
		h := rl.Middleware()(okHandler)

		for i := range 5 {
			serve(h, requestFrom(fmt.Sprintf("10.0.0.%d:1", i)))
		}
		require.Equal(t, 5, rl.Len())

		clock.Advance(10 * time.Minute)
		serve(h, requestFrom("10.0.0.99:1"))
		require.Equal(t, 1, rl.Len())
	})
}

func TestRateLimitProfiles(t *testing.T) {
	for name, config := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"public":   httpx.PublicLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.True(t, config.Enabled())
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("no env uses defaults", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("TEST", def))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "200")
		t.Setenv("RATELIMIT_TEST_WINDOW", "30s")
		t.Setenv("RATELIMIT_TEST_BURST", "250")

		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 200, Window: 30 * time.Second, Burst: 250},
			httpx.ParseRateLimitFromEnv("TEST", def))
	})

	t.Run("zero requests disables", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "0")
		require.False(t, httpx.ParseRateLimitFromEnv("TEST", def).Enabled())
	})

	t.Run("invalid values are ignored", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "invalid")
		t.Setenv("RATELIMIT_TEST_WINDOW", "-10s")
		t.Setenv("RATELIMIT_TEST_BURST", "not-a-number")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("TEST", def))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1_000_000, Window: time.Minute, Burst: 1000})(okHandler)

	for i := 0; b.Loop(); i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255)
		serve(h, req)
	}
}
