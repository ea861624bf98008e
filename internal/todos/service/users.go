package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

// CreateUserInput is an administrator creating an account. Role defaults to
// USER and Enabled to true.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
	Enabled  *bool
}

// ReplaceUserInput is a full update. Username and Email are required, an
// empty Password keeps the current one.
type ReplaceUserInput struct {
	Username string
	Email    string
	Password string
	Role     *domain.Role
	Enabled  *bool
}

type UserService struct {
	Store   store.Store
	Hasher  *cryptox.PasswordHasher
	Metrics *metrics.Metrics
}

func (s *UserService) Get(ctx context.Context, caller domain.Identity, id int64) (domain.User, error) {
	if err := enforce(ctx, s.Metrics, Authorize(caller, id, domain.RoleUser)); err != nil {
		return domain.User{}, err
	}
	u, err := s.Store.Users().GetUserByID(ctx, id)
	return u, mapStoreErr(err)
}

// List returns a page of users and the total count. ADMIN only.
func (s *UserService) List(ctx context.Context, caller domain.Identity, limit, offset int) ([]domain.User, int, error) {
	if err := enforce(ctx, s.Metrics, RequireRole(caller, domain.RoleAdmin)); err != nil {
		return nil, 0, err
	}
	users, err := s.Store.Users().ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.Users().CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Create adds an account on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, caller domain.Identity, in CreateUserInput) (domain.User, error) {
	if err := enforce(ctx, s.Metrics, RequireRole(caller, domain.RoleAdmin)); err != nil {
		return domain.User{}, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}

	fe := fieldErrors{}
	validateUsername(fe, in.Username)
	validateEmail(fe, in.Email)
	validatePassword(fe, in.Password)
	if !in.Role.Valid() {
		fe.add("role", "must be USER or ADMIN")
	}
	if err := fe.err(); err != nil {
		return domain.User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}

	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	u, err := s.Store.Users().CreateUser(ctx, domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Enabled:      enabled,
	})
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("user created", slog.Int64("user_id", u.ID), slog.String("role", u.Role.String()))
	return u, nil
}

// Replace overwrites the profile of user id.
func (s *UserService) Replace(ctx context.Context, caller domain.Identity, id int64, in ReplaceUserInput) (domain.User, error) {
	p := domain.UserPatch{Username: &in.Username, Email: &in.Email, Role: in.Role, Enabled: in.Enabled}
	if in.Password != "" {
		p.Password = &in.Password
	}
	p, err := s.authorizePatch(ctx, caller, id, p)
	if err != nil {
		return domain.User{}, err
	}

	fe := fieldErrors{}
	if strings.TrimSpace(in.Username) == "" {
		fe.add("username", "is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		fe.add("email", "is required")
	}
	if err := fe.err(); err != nil {
		return domain.User{}, err
	}
	return s.applyPatch(ctx, id, p)
}

// Patch applies the set fields of p to user id. Ownership is checked before
// anything else, and changing role or enabled needs ADMIN on top of that. An
// empty password keeps the current one.
func (s *UserService) Patch(ctx context.Context, caller domain.Identity, id int64, p domain.UserPatch) (domain.User, error) {
	if p.Password != nil && *p.Password == "" {
		p.Password = nil
	}
	p, err := s.authorizePatch(ctx, caller, id, p)
	if err != nil {
		return domain.User{}, err
	}
	return s.applyPatch(ctx, id, p)
}

// authorizePatch returns p with role and enabled dropped when a non-admin
// caller only repeats the stored values.
func (s *UserService) authorizePatch(ctx context.Context, caller domain.Identity, id int64, p domain.UserPatch) (domain.UserPatch, error) {
	if err := enforce(ctx, s.Metrics, Authorize(caller, id, domain.RoleUser)); err != nil {
		return p, err
	}
	if !p.Privileged() || RequireRole(caller, domain.RoleAdmin).Allow {
		return p, nil
	}

	u, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return p, mapStoreErr(err)
	}
	if p.ChangesPrivileged(u) {
		return p, enforce(ctx, s.Metrics, RequireRole(caller, domain.RoleAdmin))
	}
	p.Role, p.Enabled = nil, nil
	return p, nil
}

func (s *UserService) applyPatch(ctx context.Context, id int64, p domain.UserPatch) (domain.User, error) {
	if p.Username != nil {
		v := strings.TrimSpace(*p.Username)
		p.Username = &v
	}
	if p.Email != nil {
		v := normalizeEmail(*p.Email)
		p.Email = &v
	}

	fe := fieldErrors{}
	if p.Username != nil {
		validateUsername(fe, *p.Username)
	}
	if p.Email != nil {
		validateEmail(fe, *p.Email)
	}
	if p.Password != nil {
		validatePassword(fe, *p.Password)
	}
	if p.Role != nil && !p.Role.Valid() {
		fe.add("role", "must be USER or ADMIN")
	}
	if err := fe.err(); err != nil {
		return domain.User{}, err
	}

	// Hash outside the transaction, it is the slow part
	var hash string
	if p.Password != nil {
		var err error
		if hash, err = s.Hasher.Hash(*p.Password); err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return domain.User{}, err
		}
	}

	var updated domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, id)
		if err != nil {
			return err
		}

		var newName, newEmail string
		if p.Username != nil && *p.Username != u.Username {
			newName = *p.Username
		}
		if p.Email != nil && *p.Email != u.Email {
			newEmail = *p.Email
		}
		if err := checkAvailable(ctx, tx.Users(), newName, newEmail); err != nil {
			return err
		}
		if newName != "" {
			u.Username = newName
		}
		if newEmail != "" {
			u.Email = newEmail
		}
		if p.Password != nil {
			u.PasswordHash = hash
		}
		if p.Role != nil {
			u.Role = *p.Role
		}
		if p.Enabled != nil {
			u.Enabled = *p.Enabled
		}

		updated, err = tx.Users().UpdateUser(ctx, u)
		return err
	})
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}

	slogx.FromContext(ctx).Info("user updated", slog.Int64("user_id", id))
	return updated, nil
}

// Delete removes user id and every todo they own.
func (s *UserService) Delete(ctx context.Context, caller domain.Identity, id int64) error {
	if err := enforce(ctx, s.Metrics, Authorize(caller, id, domain.RoleUser)); err != nil {
		return err
	}
	if err := s.Store.Users().DeleteUser(ctx, id); err != nil {
		return mapStoreErr(err)
	}
	slogx.FromContext(ctx).Info("user deleted", slog.Int64("user_id", id))
	return nil
}
