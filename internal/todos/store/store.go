package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// ConflictError is returned when a write violates a uniqueness constraint.
// Field names the column when the driver can tell which one it was.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrAlreadyExists.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAlreadyExists, e.Field)
}

func (e *ConflictError) Unwrap() error { return ErrAlreadyExists }

// Store is the persistence boundary. The uniqueness of usernames and emails
// is enforced here by the database, whatever checks happen before a write.
type Store interface {
	Users() Users
	Todos() Todos

	// ApplyMigrations brings the schema up to date. Run it once at startup,
	// before serving traffic.
	ApplyMigrations() error

	// Tx starts a transaction. The returned Tx must be committed or rolled
	// back.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil.
	// fn must only use the Tx it is given.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	Ping(ctx context.Context) error
}

type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// ListUsers returns users ordered by id.
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)

	CountUsers(ctx context.Context) (int, error)

	// CreateUser inserts u and returns it with ID and timestamps assigned.
	// A duplicate username or email yields a *ConflictError.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)

	// UpdateUser overwrites every mutable column of the user with u.ID.
	UpdateUser(ctx context.Context, u domain.User) (domain.User, error)

	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// DeleteUser removes the user and, through the foreign key, their todos.
	DeleteUser(ctx context.Context, id int64) error

	IsEmpty(ctx context.Context) (bool, error)
}

type Todos interface {
	GetTodoByID(ctx context.Context, id int64) (domain.Todo, error)

	// ListTodos returns matching todos ordered by id.
	ListTodos(ctx context.Context, f domain.TodoFilter) ([]domain.Todo, error)

	// CountTodos ignores Limit and Offset.
	CountTodos(ctx context.Context, f domain.TodoFilter) (int, error)

	// CreateTodo fails with ErrNotFound when the owner does not exist.
	CreateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error)

	// UpdateTodo writes title, description and completed. The owner is
	// never changed.
	UpdateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error)

	DeleteTodo(ctx context.Context, id int64) error
}
