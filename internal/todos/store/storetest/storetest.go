// Package storetest is a conformance suite every store.Store driver must
// pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/stretchr/testify/require"
)

// Opener returns an empty, migrated store for one subtest.
type Opener func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, open Opener) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("user conflicts", func(t *testing.T) { testUserConflicts(t, open(t)) })
	t.Run("concurrent usernames", func(t *testing.T) { testConcurrentUsernames(t, open(t)) })
	t.Run("todos", func(t *testing.T) { testTodos(t, open(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, open(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, open(t)) })
}

// NewUser returns a valid user row with name used for username and email.
func NewUser(name string, role domain.Role) domain.User {
	return domain.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		Role:         role,
		Enabled:      true,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	empty, err := users.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice, err := users.CreateUser(ctx, NewUser("alice", domain.RoleUser))
	require.NoError(t, err)
	require.NotZero(t, alice.ID)
	require.False(t, alice.CreatedAt.IsZero())

	bob, err := users.CreateUser(ctx, NewUser("bob", domain.RoleAdmin))
	require.NoError(t, err)
	require.Greater(t, bob.ID, alice.ID)

	byID, err := users.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.Equal(t, "alice@example.com", byID.Email)
	require.Equal(t, domain.RoleUser, byID.Role)
	require.True(t, byID.Enabled)
	require.Equal(t, alice.PasswordHash, byID.PasswordHash)
	require.WithinDuration(t, alice.CreatedAt, byID.CreatedAt, time.Millisecond)

	byName, err := users.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, bob.ID, byName.ID)
	require.Equal(t, domain.RoleAdmin, byName.Role)

	byEmail, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byEmail.ID)

	_, err = users.GetUserByID(ctx, 999999)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = users.GetUserByUsername(ctx, "ALICE")
	require.ErrorIs(t, err, store.ErrNotFound, "usernames are case sensitive")

	list, err := users.ListUsers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, alice.ID, list[0].ID)

	page, err := users.ListUsers(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, bob.ID, page[0].ID)

	n, err := users.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	alice.Username = "alice2"
	alice.Enabled = false
	alice.Role = domain.RoleAdmin
	updated, err := users.UpdateUser(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "alice2", updated.Username)
	require.False(t, updated.Enabled)
	require.Equal(t, domain.RoleAdmin, updated.Role)
	require.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	require.NoError(t, users.UpdatePasswordHash(ctx, alice.ID, "new-hash"))
	got, err := users.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.ErrorIs(t, users.UpdatePasswordHash(ctx, 999999, "x"), store.ErrNotFound)

	_, err = users.UpdateUser(ctx, domain.User{ID: 999999, Username: "ghost", Email: "g@x", Role: domain.RoleUser})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, users.DeleteUser(ctx, alice.ID))
	require.ErrorIs(t, users.DeleteUser(ctx, alice.ID), store.ErrNotFound)
	_, err = users.GetUserByID(ctx, alice.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testUserConflicts(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	alice, err := users.CreateUser(ctx, NewUser("alice", domain.RoleUser))
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, NewUser("bob", domain.RoleUser))
	require.NoError(t, err)

	t.Run("duplicate username", func(t *testing.T) {
		u := NewUser("alice", domain.RoleUser)
		u.Email = "other@example.com"
		_, err := users.CreateUser(ctx, u)
		requireConflict(t, err, "username")
	})

	t.Run("duplicate email", func(t *testing.T) {
		u := NewUser("carol", domain.RoleUser)
		u.Email = "alice@example.com"
		_, err := users.CreateUser(ctx, u)
		requireConflict(t, err, "email")
	})

	t.Run("update into taken username", func(t *testing.T) {
		u := alice
		u.Username = "bob"
		_, err := users.UpdateUser(ctx, u)
		requireConflict(t, err, "username")
	})

	t.Run("update keeping own values", func(t *testing.T) {
		_, err := users.UpdateUser(ctx, alice)
		require.NoError(t, err)
	})
}

func testConcurrentUsernames(t *testing.T, s store.Store) {
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
		others    []error
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := NewUser("racer", domain.RoleUser)
			u.Email = fmt.Sprintf("racer%d@example.com", i)
			_, err := s.Users().CreateUser(context.Background(), u)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrAlreadyExists):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
}

func testTodos(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner, err := s.Users().CreateUser(ctx, NewUser("owner", domain.RoleUser))
	require.NoError(t, err)
	other, err := s.Users().CreateUser(ctx, NewUser("other", domain.RoleUser))
	require.NoError(t, err)

	_, err = s.Todos().CreateTodo(ctx, domain.Todo{OwnerID: 999999, Title: "orphan"})
	require.ErrorIs(t, err, store.ErrNotFound)

	todos := s.Todos()
	first, err := todos.CreateTodo(ctx, domain.Todo{OwnerID: owner.ID, Title: "buy milk", Description: "2L"})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := todos.CreateTodo(ctx, domain.Todo{OwnerID: owner.ID, Title: "walk dog", Completed: true})
	require.NoError(t, err)
	_, err = todos.CreateTodo(ctx, domain.Todo{OwnerID: other.ID, Title: "not yours"})
	require.NoError(t, err)

	got, err := todos.GetTodoByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, owner.ID, got.OwnerID)
	require.Equal(t, "buy milk", got.Title)
	require.Equal(t, "2L", got.Description)
	require.False(t, got.Completed)

	_, err = todos.GetTodoByID(ctx, 999999)
	require.ErrorIs(t, err, store.ErrNotFound)

	done, notDone := true, false
	tests := []struct {
		name   string
		filter domain.TodoFilter
		want   int
	}{
		{"everything", domain.TodoFilter{}, 3},
		{"one owner", domain.TodoFilter{OwnerID: owner.ID}, 2},
		{"completed", domain.TodoFilter{OwnerID: owner.ID, Completed: &done}, 1},
		{"open", domain.TodoFilter{OwnerID: owner.ID, Completed: &notDone}, 1},
		{"paged", domain.TodoFilter{OwnerID: owner.ID, Limit: 1, Offset: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := todos.ListTodos(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, list, tt.want)
		})
	}

	count, err := todos.CountTodos(ctx, domain.TodoFilter{OwnerID: owner.ID, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 2, count, "count ignores paging")

	// Owner in the update payload must be ignored
	second.Title = "walk cat"
	second.Completed = false
	second.OwnerID = other.ID
	updated, err := todos.UpdateTodo(ctx, second)
	require.NoError(t, err)
	require.Equal(t, "walk cat", updated.Title)
	require.False(t, updated.Completed)
	require.Equal(t, owner.ID, updated.OwnerID)

	_, err = todos.UpdateTodo(ctx, domain.Todo{ID: 999999, Title: "x"})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, todos.DeleteTodo(ctx, first.ID))
	require.ErrorIs(t, todos.DeleteTodo(ctx, first.ID), store.ErrNotFound)
}

func testCascade(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner, err := s.Users().CreateUser(ctx, NewUser("leaver", domain.RoleUser))
	require.NoError(t, err)
	todo, err := s.Todos().CreateTodo(ctx, domain.Todo{OwnerID: owner.ID, Title: "left behind"})
	require.NoError(t, err)

	require.NoError(t, s.Users().DeleteUser(ctx, owner.ID))

	_, err = s.Todos().GetTodoByID(ctx, todo.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().CreateUser(ctx, NewUser("rolled", domain.RoleUser)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.Users().GetUserByUsername(ctx, "rolled")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().CreateUser(ctx, NewUser("kept", domain.RoleUser))
		if err != nil {
			return err
		}
		_, err = tx.Todos().CreateTodo(ctx, domain.Todo{OwnerID: u.ID, Title: "in tx"})
		return err
	})
	require.NoError(t, err)
	kept, err := s.Users().GetUserByUsername(ctx, "kept")
	require.NoError(t, err)

	n, err := s.Todos().CountTodos(ctx, domain.TodoFilter{OwnerID: kept.ID})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, s.Ping(ctx))
}

func requireConflict(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	var ce *store.ConflictError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, field, ce.Field)
}
