package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

// UsersHandler serves both /api/users/{id} and /api/users/me. The /me
// routes carry no {id} and act on the caller.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList lists accounts.
//
//	@Summary		List users
//	@Description	Returns a page of users ordered by id. Requires the ADMIN role. The total is sent in X-Total-Count.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (1-1000)"
//	@Param			offset	query		int	false	"Rows to skip"
//	@Success		200		{array}		todosdk.UserResponse
//	@Header			200		{integer}	X-Total-Count	"Number of users"
//	@Failure		401		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Router			/api/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	limit, offset, ok := page(w, r)
	if !ok {
		return
	}

	users, total, err := h.UserService.List(r.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]todosdk.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	setTotalCount(w, total)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate adds an account of any role.
//
//	@Summary		Create user
//	@Description	Creates an account. Requires the ADMIN role. Role defaults to USER.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		todosdk.CreateUserRequest	true	"New account"
//	@Success		201		{object}	todosdk.UserResponse
//	@Header			201		{string}	Location	"URL of the new user"
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Failure		409		{object}	todosdk.ErrorResponse
//	@Router			/api/users [post].
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req todosdk.CreateUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in := service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Enabled:  req.Enabled,
	}
	if req.Role != "" {
		in.Role = parseRole(req.Role)
	}

	u, err := h.UserService.Create(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/users/"+strconv.FormatInt(u.ID, 10))
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleGet returns one account.
//
//	@Summary		Get user
//	@Description	Users may read their own account, administrators any account.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"User ID"
//	@Success		200	{object}	todosdk.UserResponse
//	@Failure		401	{object}	todosdk.ErrorResponse
//	@Failure		403	{object}	todosdk.ErrorResponse
//	@Failure		404	{object}	todosdk.ErrorResponse
//	@Router			/api/users/{id} [get]
//	@Router			/api/users/me [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, target, ok := h.target(w, r)
	if !ok {
		return
	}

	u, err := h.UserService.Get(r.Context(), id, target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleReplace overwrites an account.
//
//	@Summary		Replace user
//	@Description	Username and email are required, an empty password keeps the current one. Only administrators may change role or enabled.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User ID"
//	@Param			request	body		todosdk.ReplaceUserRequest	true	"Account"
//	@Success		200		{object}	todosdk.UserResponse
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Failure		404		{object}	todosdk.ErrorResponse
//	@Failure		409		{object}	todosdk.ErrorResponse
//	@Router			/api/users/{id} [put]
//	@Router			/api/users/me [put].
func (h *UsersHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	id, target, ok := h.target(w, r)
	if !ok {
		return
	}

	var req todosdk.ReplaceUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in := service.ReplaceUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Enabled:  req.Enabled,
	}
	if req.Role != nil {
		role := parseRole(*req.Role)
		in.Role = &role
	}

	u, err := h.UserService.Replace(r.Context(), id, target, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandlePatch changes some fields of an account.
//
//	@Summary		Patch user
//	@Description	Applies only the fields present in the body, an empty password is ignored. Only administrators may change role or enabled.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"User ID"
//	@Param			request	body		todosdk.PatchUserRequest	true	"Fields to change"
//	@Success		200		{object}	todosdk.UserResponse
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Failure		404		{object}	todosdk.ErrorResponse
//	@Failure		409		{object}	todosdk.ErrorResponse
//	@Router			/api/users/{id} [patch]
//	@Router			/api/users/me [patch].
func (h *UsersHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, target, ok := h.target(w, r)
	if !ok {
		return
	}

	var req todosdk.PatchUserRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p := domain.UserPatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Enabled:  req.Enabled,
	}
	if req.Role != nil {
		role := parseRole(*req.Role)
		p.Role = &role
	}

	u, err := h.UserService.Patch(r.Context(), id, target, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete removes an account and every todo it owns.
//
//	@Summary		Delete user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	int	true	"User ID"
//	@Success		204
//	@Failure		403	{object}	todosdk.ErrorResponse
//	@Failure		404	{object}	todosdk.ErrorResponse
//	@Router			/api/users/{id} [delete]
//	@Router			/api/users/me [delete].
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, target, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.UserService.Delete(r.Context(), id, target); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the user the request is about.
func (h *UsersHandler) target(w http.ResponseWriter, r *http.Request) (domain.Identity, int64, bool) {
	id, ok := caller(w, r)
	if !ok {
		return domain.Identity{}, 0, false
	}
	target, ok := pathID(w, r, id.SubjectID)
	return id, target, ok
}

// parseRole normalises s. Unknown names are passed on as they are and
// rejected by the service, after its ownership checks.
func parseRole(s string) domain.Role {
	if role, err := domain.ParseRole(s); err == nil {
		return role
	}
	return domain.Role(s)
}
