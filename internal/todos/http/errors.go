package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

// writeServiceError maps err onto the status codes of the API. Anything not
// recognised is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteJSON(w, http.StatusBadRequest, todosdk.ErrorResponse{
			Error:            todosdk.ErrorCodeInvalidInput,
			ErrorDescription: "request validation failed",
			Fields:           ve.Fields,
		})
	case errors.Is(err, httpx.ErrBadRequest):
		httpx.WriteError(w, http.StatusBadRequest, todosdk.ErrorCodeInvalidInput,
			detail(err, httpx.ErrBadRequest, "malformed request body"))
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, todosdk.ErrorCodeInvalidInput,
			detail(err, service.ErrInvalidInput, "invalid input"))
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, todosdk.ErrorCodeUnauthenticated,
			detail(err, service.ErrUnauthenticated, "authentication required"))
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, todosdk.ErrorCodeForbidden, "access denied")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, todosdk.ErrorCodeNotFound, "resource not found")
	case errors.Is(err, service.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, todosdk.ErrorCodeConflict,
			detail(err, service.ErrConflict, "resource already exists"))
	case errors.Is(err, context.Canceled):
		// The client is gone, nobody reads the reply
		slogx.FromContext(r.Context()).Info("request canceled by client")
	default:
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, todosdk.ErrorCodeInternal, "internal server error")
	}
}

// detail returns the text wrapped around sentinel in err, or fallback when
// err is the bare sentinel.
func detail(err, sentinel error, fallback string) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		if d := msg[i+len(prefix):]; d != "" {
			return d
		}
	}
	return fallback
}

func writeFieldError(w http.ResponseWriter, field, msg string) {
	httpx.WriteJSON(w, http.StatusBadRequest, todosdk.ErrorResponse{
		Error:            todosdk.ErrorCodeInvalidInput,
		ErrorDescription: "request validation failed",
		Fields:           map[string]string{field: msg},
	})
}
