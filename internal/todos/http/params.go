package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

const maxPageSize = 1000

// caller returns the identity stored by the authentication middleware. It
// writes a 401 and returns false when there is none, which only happens when
// a protected route was wrongly registered as public.
func caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := httpx.IdentityFrom[domain.Identity](r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, todosdk.ErrorCodeUnauthenticated, "authentication required")
	}
	return id, ok
}

// pathID parses the {id} wildcard. Routes without it (the /me variants)
// resolve to fallback.
func pathID(w http.ResponseWriter, r *http.Request, fallback int64) (int64, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		return fallback, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeFieldError(w, "id", "must be a positive integer")
		return 0, false
	}
	return id, true
}

// page reads ?limit= and ?offset=. A missing limit leaves the store default.
func page(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			writeFieldError(w, "limit", "must be between 1 and "+strconv.Itoa(maxPageSize))
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeFieldError(w, "offset", "must be zero or more")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func setTotalCount(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}

func toUserResponse(u domain.User) todosdk.UserResponse {
	return todosdk.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTodoResponse(t domain.Todo) todosdk.TodoResponse {
	return todosdk.TodoResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
