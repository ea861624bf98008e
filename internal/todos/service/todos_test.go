package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/stretchr/testify/require"
)

func TestTodoService_CreateValidation(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.register(t, "alice")

	tests := []struct {
		name  string
		in    service.TodoInput
		field string
	}{
		{"empty title", service.TodoInput{}, "title"},
		{"blank title", service.TodoInput{Title: "   "}, "title"},
		{"long title", service.TodoInput{Title: strings.Repeat("t", domain.MaxTodoTitleLen+1)}, "title"},
		{"long description", service.TodoInput{Title: "ok", Description: strings.Repeat("d", domain.MaxTodoDescriptionLen+1)}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.todos.Create(context.Background(), alice, tt.in)
			var ve *service.ValidationError
			require.True(t, errors.As(err, &ve))
			require.Contains(t, ve.Fields, tt.field)
		})
	}

	_, err := e.todos.Create(context.Background(), alice, service.TodoInput{Title: strings.Repeat("ü", domain.MaxTodoTitleLen)})
	require.NoError(t, err, "limits count characters, not bytes")
}

func TestTodoService_Ownership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, aliceUser := e.register(t, "alice")
	bob, _ := e.register(t, "bob")
	admin := e.admin(t)

	todo, err := e.todos.Create(ctx, alice, service.TodoInput{Title: "alice's", Description: "mine"})
	require.NoError(t, err)
	require.Equal(t, aliceUser.ID, todo.OwnerID)

	t.Run("owner reads", func(t *testing.T) {
		got, err := e.todos.Get(ctx, alice, todo.ID)
		require.NoError(t, err)
		require.Equal(t, "mine", got.Description)
	})

	t.Run("admin reads", func(t *testing.T) {
		_, err := e.todos.Get(ctx, admin, todo.ID)
		require.NoError(t, err)
	})

	t.Run("stranger is refused everywhere", func(t *testing.T) {
		_, err := e.todos.Get(ctx, bob, todo.ID)
		require.ErrorIs(t, err, service.ErrForbidden)

		_, err = e.todos.Replace(ctx, bob, todo.ID, service.TodoInput{Title: "stolen"})
		require.ErrorIs(t, err, service.ErrForbidden)

		// Forbidden wins over the invalid title
		_, err = e.todos.Patch(ctx, bob, todo.ID, domain.TodoPatch{Title: ptr("")})
		require.ErrorIs(t, err, service.ErrForbidden)

		require.ErrorIs(t, e.todos.Delete(ctx, bob, todo.ID), service.ErrForbidden)

		got, err := e.todos.Get(ctx, alice, todo.ID)
		require.NoError(t, err)
		require.Equal(t, "alice's", got.Title)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := e.todos.Get(ctx, alice, 9999)
		require.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestTodoService_UpdateAndList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, _ := e.register(t, "alice")
	bob, _ := e.register(t, "bob")

	first, err := e.todos.Create(ctx, alice, service.TodoInput{Title: "one", Description: "desc"})
	require.NoError(t, err)
	_, err = e.todos.Create(ctx, alice, service.TodoInput{Title: "two", Completed: true})
	require.NoError(t, err)
	_, err = e.todos.Create(ctx, bob, service.TodoInput{Title: "bob's"})
	require.NoError(t, err)

	patched, err := e.todos.Patch(ctx, alice, first.ID, domain.TodoPatch{Completed: ptr(true)})
	require.NoError(t, err)
	require.True(t, patched.Completed)
	require.Equal(t, "one", patched.Title)
	require.Equal(t, "desc", patched.Description)

	_, err = e.todos.Patch(ctx, alice, first.ID, domain.TodoPatch{Title: ptr("")})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	replaced, err := e.todos.Replace(ctx, alice, first.ID, service.TodoInput{Title: "uno"})
	require.NoError(t, err)
	require.Equal(t, "uno", replaced.Title)
	require.Empty(t, replaced.Description)
	require.False(t, replaced.Completed)

	all, total, err := e.todos.List(ctx, alice, service.TodoQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 2, total)

	done, total, err := e.todos.List(ctx, alice, service.TodoQuery{Completed: ptr(true)})
	require.NoError(t, err)
	require.Len(t, done, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "two", done[0].Title)

	require.NoError(t, e.todos.Delete(ctx, alice, first.ID))
	_, err = e.todos.Get(ctx, alice, first.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}
