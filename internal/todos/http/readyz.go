package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Reports whether the database answers and signing keys are loaded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	todosdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	todosdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeyManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &todosdk.HealthChecks{Database: "ok", Signer: "ok"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			// The error can carry the DSN host, keep it in the logs
			slogx.FromContext(r.Context()).Warn("readiness database check failed", "err", err)
			checks.Database = "error: unreachable"
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if keys == nil || !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, todosdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
