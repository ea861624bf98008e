package sqldb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
)

const userColumns = `id, username, email, password_hash, role, enabled, created_at, updated_at`

type usersRepo struct {
	q   queryer
	d   Dialect
	now func() time.Time
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT `+userColumns+` FROM users WHERE `+where), arg)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, `username = ?`, username)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `email = ?`, email)
}

func (r *usersRepo) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		r.d.Rebind(`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`),
		clampLimit(limit), max(offset, 0),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	n, err := r.CountUsers(ctx)
	return n == 0, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	err := r.q.QueryRowContext(ctx,
		r.d.Rebind(`INSERT INTO users (username, email, password_hash, role, enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.Enabled, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return domain.User{}, mapWriteErr(r.d, err)
	}
	return u, nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.UpdatedAt = r.now().UTC()

	res, err := r.q.ExecContext(ctx,
		r.d.Rebind(`UPDATE users SET username = ?, email = ?, password_hash = ?, role = ?, enabled = ?, updated_at = ?
			WHERE id = ?`),
		u.Username, u.Email, u.PasswordHash, string(u.Role), u.Enabled, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return domain.User{}, mapWriteErr(r.d, err)
	}
	if err := requireAffected(res); err != nil {
		return domain.User{}, err
	}
	return r.GetUserByID(ctx, u.ID)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.q.ExecContext(ctx,
		r.d.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		hash, r.now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.Enabled,
		dbTime{&u.CreatedAt}, dbTime{&u.UpdatedAt})
	u.Role = domain.Role(role)
	return u, err
}

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}
