package todosdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Me returns the profile of the session's user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	return s.getUser(ctx, "/api/users/me")
}

// ReplaceMe replaces the session user's profile.
func (s *Session) ReplaceMe(ctx context.Context, req ReplaceUserRequest) (*UserResponse, error) {
	return s.sendUser(ctx, http.MethodPut, "/api/users/me", req)
}

// PatchMe changes only the fields set in req.
func (s *Session) PatchMe(ctx context.Context, req PatchUserRequest) (*UserResponse, error) {
	return s.sendUser(ctx, http.MethodPatch, "/api/users/me", req)
}

// DeleteMe deletes the session user together with their todos.
func (s *Session) DeleteMe(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodDelete, "/api/users/me", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) GetUser(ctx context.Context, id int64) (*UserResponse, error) {
	return s.getUser(ctx, userPath(id))
}

func (s *Session) ReplaceUser(ctx context.Context, id int64, req ReplaceUserRequest) (*UserResponse, error) {
	return s.sendUser(ctx, http.MethodPut, userPath(id), req)
}

func (s *Session) PatchUser(ctx context.Context, id int64, req PatchUserRequest) (*UserResponse, error) {
	return s.sendUser(ctx, http.MethodPatch, userPath(id), req)
}

func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	resp, err := s.do(ctx, http.MethodDelete, userPath(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ============================================================================
// Administration
// ============================================================================

// ListUsers returns one page of users. Requires the ADMIN role.
func (s *Session) ListUsers(ctx context.Context, limit, offset int) (*UserList, error) {
	path := "/api/users"
	if q := pageQuery(url.Values{}, limit, offset); len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var users []UserResponse
	if err := decodeJSON(resp, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return &UserList{Users: users, Total: totalCount(resp, len(users))}, nil
}

// CreateUser creates an account of any role. Requires the ADMIN role.
func (s *Session) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/api/users", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) getUser(ctx context.Context, path string) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) sendUser(ctx context.Context, method, path string, body any) (*UserResponse, error) {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("/api/users/%d", id)
}

func pageQuery(q url.Values, limit, offset int) url.Values {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}
