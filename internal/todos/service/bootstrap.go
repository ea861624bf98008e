package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

// systemCaller provisions accounts at startup, before any request exists.
var systemCaller = domain.Identity{Role: domain.RoleAdmin, Enabled: true}

// BootstrapService creates the first administrator of an empty database.
type BootstrapService struct {
	Users *UserService
}

// EnsureAdmin creates an ADMIN account from in when the store holds no user
// at all. It reports whether the account was created. Losing a race against
// another replica doing the same is not an error.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, in RegisterInput) (domain.User, bool, error) {
	l := slogx.FromContext(ctx)

	empty, err := s.Users.Store.Users().IsEmpty(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	if !empty {
		l.Debug("bootstrap skipped, users already exist")
		return domain.User{}, false, nil
	}

	u, err := s.Users.Create(ctx, systemCaller, CreateUserInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		Role:     domain.RoleAdmin,
	})
	switch {
	case errors.Is(err, ErrConflict):
		l.Info("bootstrap admin already created elsewhere", slog.String("username", in.Username))
		return domain.User{}, false, nil
	case err != nil:
		return domain.User{}, false, err
	}

	l.Info("bootstrap admin created", slog.Int64("user_id", u.ID), slog.String("username", u.Username))
	return u, true, nil
}
