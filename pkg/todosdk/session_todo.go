package todosdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListTodos returns the session user's todos matching q.
func (s *Session) ListTodos(ctx context.Context, q TodoQuery) (*TodoList, error) {
	values := pageQuery(url.Values{}, q.Limit, q.Offset)
	if q.Completed != nil {
		values.Set("completed", strconv.FormatBool(*q.Completed))
	}
	path := "/api/todos"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var todos []TodoResponse
	if err := decodeJSON(resp, &todos, http.StatusOK); err != nil {
		return nil, err
	}
	return &TodoList{Todos: todos, Total: totalCount(resp, len(todos))}, nil
}

func (s *Session) CreateTodo(ctx context.Context, req TodoRequest) (*TodoResponse, error) {
	return s.sendTodo(ctx, http.MethodPost, "/api/todos", req, http.StatusCreated)
}

func (s *Session) GetTodo(ctx context.Context, id int64) (*TodoResponse, error) {
	return s.sendTodo(ctx, http.MethodGet, todoPath(id), nil, http.StatusOK)
}

// ReplaceTodo overwrites every field of the todo.
func (s *Session) ReplaceTodo(ctx context.Context, id int64, req TodoRequest) (*TodoResponse, error) {
	return s.sendTodo(ctx, http.MethodPut, todoPath(id), req, http.StatusOK)
}

// PatchTodo changes only the fields set in req.
func (s *Session) PatchTodo(ctx context.Context, id int64, req PatchTodoRequest) (*TodoResponse, error) {
	return s.sendTodo(ctx, http.MethodPatch, todoPath(id), req, http.StatusOK)
}

func (s *Session) DeleteTodo(ctx context.Context, id int64) error {
	resp, err := s.do(ctx, http.MethodDelete, todoPath(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) sendTodo(ctx context.Context, method, path string, body any, want int) (*TodoResponse, error) {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var todo TodoResponse
	if err := decodeJSON(resp, &todo, want); err != nil {
		return nil, err
	}
	return &todo, nil
}

func todoPath(id int64) string {
	return fmt.Sprintf("/api/todos/%d", id)
}
