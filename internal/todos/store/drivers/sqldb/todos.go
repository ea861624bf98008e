package sqldb

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
)

const todoColumns = `id, owner_id, title, description, completed, created_at, updated_at`

type todosRepo struct {
	q   queryer
	d   Dialect
	now func() time.Time
}

func (r *todosRepo) GetTodoByID(ctx context.Context, id int64) (domain.Todo, error) {
	row := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT `+todoColumns+` FROM todos WHERE id = ?`), id)
	t, err := scanTodo(row)
	if err != nil {
		return domain.Todo{}, mapNotFound(err)
	}
	return t, nil
}

func (r *todosRepo) ListTodos(ctx context.Context, f domain.TodoFilter) ([]domain.Todo, error) {
	where, args := todoWhere(f)
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := r.q.QueryContext(ctx,
		r.d.Rebind(`SELECT `+todoColumns+` FROM todos`+where+` ORDER BY id LIMIT ? OFFSET ?`),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (r *todosRepo) CountTodos(ctx context.Context, f domain.TodoFilter) (int, error) {
	where, args := todoWhere(f)

	var n int
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM todos`+where), args...).Scan(&n)
	return n, err
}

func (r *todosRepo) CreateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error) {
	now := r.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	err := r.q.QueryRowContext(ctx,
		r.d.Rebind(`INSERT INTO todos (owner_id, title, description, completed, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		t.OwnerID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return domain.Todo{}, mapWriteErr(r.d, err)
	}
	return t, nil
}

func (r *todosRepo) UpdateTodo(ctx context.Context, t domain.Todo) (domain.Todo, error) {
	res, err := r.q.ExecContext(ctx,
		r.d.Rebind(`UPDATE todos SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ?`),
		t.Title, t.Description, t.Completed, r.now().UTC(), t.ID,
	)
	if err != nil {
		return domain.Todo{}, mapWriteErr(r.d, err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Todo{}, err
	}
	return r.GetTodoByID(ctx, t.ID)
}

func (r *todosRepo) DeleteTodo(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM todos WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func todoWhere(f domain.TodoFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != 0 {
		conds = append(conds, `owner_id = ?`)
		args = append(args, f.OwnerID)
	}
	if f.Completed != nil {
		conds = append(conds, `completed = ?`)
		args = append(args, *f.Completed)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanTodo(row rowScanner) (domain.Todo, error) {
	var t domain.Todo
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Completed,
		dbTime{&t.CreatedAt}, dbTime{&t.UpdatedAt})
	return t, err
}
