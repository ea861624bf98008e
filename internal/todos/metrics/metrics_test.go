package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg, reg)

	m.TokenMinted()
	m.TokenVerified("ok")
	m.TokenVerified("expired")
	m.TokenVerified("expired")
	m.Authentication(metrics.OutcomeFailure)
	m.Registration(metrics.OutcomeConflict)
	m.Authorization(true)
	m.Authorization(false)
	m.HTTPRequest(http.MethodGet, "GET /api/todos", http.StatusOK, 5*time.Millisecond)

	require.Equal(t, 2, testutil.CollectAndCount(reg, "tabtodo_token_verifications_total"))
	require.Equal(t, 2, testutil.CollectAndCount(reg, "tabtodo_authorization_decisions_total"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "tabtodo_http_requests_total"))

	count, err := testutil.GatherAndCount(reg, "tabtodo_tokens_minted_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics

	require.NotPanics(t, func() {
		m.TokenMinted()
		m.TokenVerified("ok")
		m.Authentication(metrics.OutcomeSuccess)
		m.Registration(metrics.OutcomeSuccess)
		m.Authorization(true)
		m.HTTPRequest(http.MethodGet, "/", 200, time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposition(t *testing.T) {
	m := metrics.New()
	m.Authentication(metrics.OutcomeSuccess)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `tabtodo_authentications_total{outcome="success"} 1`)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
