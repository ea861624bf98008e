package todosdk

import (
	"time"

	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse = httpx.ErrorResponse

// ============================================================================
// Authentication Types
// ============================================================================

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// AuthenticateRequest is the body of POST /api/v1/auth/authenticate.
// Username may also hold the account's email address.
type AuthenticateRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"correct horse battery"`
}

// TokenResponse is returned by register and authenticate. The same token is
// also set as the session cookie.
type TokenResponse struct {
	// Token is the signed session JWT
	Token string `json:"token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type" example:"Bearer"`

	// ExpiresIn is the token lifetime in seconds
	ExpiresIn int `json:"expires_in" example:"86400"`

	ExpiresAt time.Time `json:"expires_at"`

	User UserResponse `json:"user"`
}

// ============================================================================
// User Types
// ============================================================================

// UserResponse is the public view of an account. It never carries the
// password hash.
type UserResponse struct {
	ID        int64     `json:"id" example:"1"`
	Username  string    `json:"username" example:"alice"`
	Email     string    `json:"email" example:"alice@example.com"`
	Role      string    `json:"role" example:"USER"`
	Enabled   bool      `json:"enabled" example:"true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateUserRequest is the body of POST /api/users (administrators only).
// Role defaults to USER and Enabled to true.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty" example:"USER"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ReplaceUserRequest is the body of PUT on a user. Username and email are
// required. An empty password keeps the current one. Role and enabled may
// only be sent by administrators.
type ReplaceUserRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// PatchUserRequest is the body of PATCH on a user. Absent fields are left
// untouched.
type PatchUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// UserList is a page of users together with the total number of users.
type UserList struct {
	Users []UserResponse
	Total int
}

// ============================================================================
// Todo Types
// ============================================================================

type TodoResponse struct {
	ID          int64     `json:"id" example:"7"`
	OwnerID     int64     `json:"owner_id" example:"1"`
	Title       string    `json:"title" example:"Buy milk"`
	Description string    `json:"description" example:"2 litres, full cream"`
	Completed   bool      `json:"completed" example:"false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoRequest is the body of POST /api/todos and PUT /api/todos/{id}.
type TodoRequest struct {
	Title       string `json:"title" example:"Buy milk"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
}

// PatchTodoRequest is the body of PATCH /api/todos/{id}.
type PatchTodoRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// TodoQuery filters GET /api/todos. Zero values mean "no filter".
type TodoQuery struct {
	Completed *bool
	Limit     int
	Offset    int
}

// TodoList is a page of todos together with the total matching the filter.
type TodoList struct {
	Todos []TodoResponse
	Total int
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only present
// on /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status string `json:"status"`

	// Uptime is the service uptime (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	Version string `json:"version,omitempty"`

	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the status of each critical dependency.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
