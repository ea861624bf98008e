package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

type TodoInput struct {
	Title       string
	Description string
	Completed   bool
}

// TodoQuery narrows List to the caller's todos.
type TodoQuery struct {
	Completed *bool
	Limit     int
	Offset    int
}

type TodoService struct {
	Store   store.Store
	Metrics *metrics.Metrics
}

// List returns a page of the caller's own todos and how many match in total.
func (s *TodoService) List(ctx context.Context, caller domain.Identity, q TodoQuery) ([]domain.Todo, int, error) {
	f := domain.TodoFilter{OwnerID: caller.SubjectID, Completed: q.Completed, Limit: q.Limit, Offset: q.Offset}

	todos, err := s.Store.Todos().ListTodos(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Todos().CountTodos(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return todos, total, nil
}

// Get returns todo id if the caller owns it or is an administrator.
func (s *TodoService) Get(ctx context.Context, caller domain.Identity, id int64) (domain.Todo, error) {
	return s.load(ctx, s.Store, caller, id)
}

// load fetches todo id and applies the ownership check to it.
func (s *TodoService) load(ctx context.Context, st store.Store, caller domain.Identity, id int64) (domain.Todo, error) {
	t, err := st.Todos().GetTodoByID(ctx, id)
	if err != nil {
		return domain.Todo{}, mapStoreErr(err)
	}
	if err := enforce(ctx, s.Metrics, Authorize(caller, t.OwnerID, domain.RoleUser)); err != nil {
		return domain.Todo{}, err
	}
	return t, nil
}

// Create adds a todo owned by the caller.
func (s *TodoService) Create(ctx context.Context, caller domain.Identity, in TodoInput) (domain.Todo, error) {
	t := domain.Todo{
		OwnerID:     caller.SubjectID,
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
	}

	fe := fieldErrors{}
	validateTodo(fe, t)
	if err := fe.err(); err != nil {
		return domain.Todo{}, err
	}

	created, err := s.Store.Todos().CreateTodo(ctx, t)
	if err != nil {
		return domain.Todo{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("todo created", slog.Int64("todo_id", created.ID))
	return created, nil
}

// Replace overwrites every field of todo id except its owner.
func (s *TodoService) Replace(ctx context.Context, caller domain.Identity, id int64, in TodoInput) (domain.Todo, error) {
	return s.Patch(ctx, caller, id, domain.TodoPatch{
		Title:       &in.Title,
		Description: &in.Description,
		Completed:   &in.Completed,
	})
}

// Patch applies the set fields of p. The ownership check runs before any
// field is looked at.
func (s *TodoService) Patch(ctx context.Context, caller domain.Identity, id int64, p domain.TodoPatch) (domain.Todo, error) {
	var updated domain.Todo
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := s.load(ctx, tx, caller, id)
		if err != nil {
			return err
		}

		p.Apply(&t)
		fe := fieldErrors{}
		validateTodo(fe, t)
		if err := fe.err(); err != nil {
			return err
		}

		updated, err = tx.Todos().UpdateTodo(ctx, t)
		return err
	})
	if err != nil {
		return domain.Todo{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("todo updated", slog.Int64("todo_id", id))
	return updated, nil
}

func (s *TodoService) Delete(ctx context.Context, caller domain.Identity, id int64) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := s.load(ctx, tx, caller, id); err != nil {
			return err
		}
		return tx.Todos().DeleteTodo(ctx, id)
	})
	if err != nil {
		return mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("todo deleted", slog.Int64("todo_id", id))
	return nil
}
