package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

type TodosHandler struct {
	TodoService *service.TodoService
}

// HandleList lists the caller's todos.
//
//	@Summary		List todos
//	@Description	Returns the caller's own todos ordered by id, optionally filtered by completion. The number of matches is sent in X-Total-Count.
//	@Tags			Todos
//	@Security		BearerAuth
//	@Produce		json
//	@Param			completed	query		bool	false	"Only completed (true) or open (false) todos"
//	@Param			limit		query		int		false	"Page size (1-1000)"
//	@Param			offset		query		int		false	"Rows to skip"
//	@Success		200			{array}		todosdk.TodoResponse
//	@Header			200			{integer}	X-Total-Count	"Number of matching todos"
//	@Failure		400			{object}	todosdk.ErrorResponse
//	@Failure		401			{object}	todosdk.ErrorResponse
//	@Router			/api/todos [get].
func (h *TodosHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	limit, offset, ok := page(w, r)
	if !ok {
		return
	}

	q := service.TodoQuery{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("completed"); v != "" {
		done, err := strconv.ParseBool(v)
		if err != nil {
			writeFieldError(w, "completed", "must be true or false")
			return
		}
		q.Completed = &done
	}

	todos, total, err := h.TodoService.List(r.Context(), id, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]todosdk.TodoResponse, 0, len(todos))
	for _, t := range todos {
		resp = append(resp, toTodoResponse(t))
	}
	setTotalCount(w, total)
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate adds a todo owned by the caller.
//
//	@Summary		Create todo
//	@Tags			Todos
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		todosdk.TodoRequest	true	"Todo"
//	@Success		201		{object}	todosdk.TodoResponse
//	@Header			201		{string}	Location	"URL of the new todo"
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		401		{object}	todosdk.ErrorResponse
//	@Router			/api/todos [post].
func (h *TodosHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	var req todosdk.TodoRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	t, err := h.TodoService.Create(r.Context(), id, todoInput(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/todos/"+strconv.FormatInt(t.ID, 10))
	httpx.WriteJSON(w, http.StatusCreated, toTodoResponse(t))
}

// HandleGet returns one todo.
//
//	@Summary		Get todo
//	@Description	Owners may read their todos, administrators any todo.
//	@Tags			Todos
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Todo ID"
//	@Success		200	{object}	todosdk.TodoResponse
//	@Header			200	{string}	Last-Modified	"Time of the last change"
//	@Failure		403	{object}	todosdk.ErrorResponse
//	@Failure		404	{object}	todosdk.ErrorResponse
//	@Router			/api/todos/{id} [get].
func (h *TodosHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	t, err := h.TodoService.Get(r.Context(), id, todoID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Last-Modified", t.UpdatedAt.UTC().Format(http.TimeFormat))
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(t))
}

// HandleReplace overwrites every field of a todo.
//
//	@Summary		Replace todo
//	@Tags			Todos
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Todo ID"
//	@Param			request	body		todosdk.TodoRequest	true	"Todo"
//	@Success		200		{object}	todosdk.TodoResponse
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Failure		404		{object}	todosdk.ErrorResponse
//	@Router			/api/todos/{id} [put].
func (h *TodosHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	id, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req todosdk.TodoRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	t, err := h.TodoService.Replace(r.Context(), id, todoID, todoInput(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(t))
}

// HandlePatch changes some fields of a todo.
//
//	@Summary		Patch todo
//	@Description	Applies only the fields present in the body.
//	@Tags			Todos
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Todo ID"
//	@Param			request	body		todosdk.PatchTodoRequest	true	"Fields to change"
//	@Success		200		{object}	todosdk.TodoResponse
//	@Failure		400		{object}	todosdk.ErrorResponse
//	@Failure		403		{object}	todosdk.ErrorResponse
//	@Failure		404		{object}	todosdk.ErrorResponse
//	@Router			/api/todos/{id} [patch].
func (h *TodosHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req todosdk.PatchTodoRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	t, err := h.TodoService.Patch(r.Context(), id, todoID, domain.TodoPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTodoResponse(t))
}

// HandleDelete removes a todo.
//
//	@Summary		Delete todo
//	@Tags			Todos
//	@Security		BearerAuth
//	@Param			id	path	int	true	"Todo ID"
//	@Success		204
//	@Failure		403	{object}	todosdk.ErrorResponse
//	@Failure		404	{object}	todosdk.ErrorResponse
//	@Router			/api/todos/{id} [delete].
func (h *TodosHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, todoID, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.TodoService.Delete(r.Context(), id, todoID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodosHandler) target(w http.ResponseWriter, r *http.Request) (domain.Identity, int64, bool) {
	id, ok := caller(w, r)
	if !ok {
		return domain.Identity{}, 0, false
	}
	todoID, ok := pathID(w, r, 0)
	return id, todoID, ok
}

func todoInput(req todosdk.TodoRequest) service.TodoInput {
	return service.TodoInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
}
