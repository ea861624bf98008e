package http

import (
	"net/http"
	"time"
)

// unmatchedRoute labels requests no pattern matched, so arbitrary paths
// cannot blow up the label set.
const unmatchedRoute = "unmatched"

// instrument records every request with the mux pattern that serves it.
// It runs outside the mux, so the pattern is looked up rather than read
// from the request.
func (r *Router) instrument(next http.Handler) http.Handler {
	if r.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, req)

		route := unmatchedRoute
		if _, pattern := r.Mux.Handler(req); pattern != "" {
			route = pattern
		}
		r.metrics.HTTPRequest(req.Method, route, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
