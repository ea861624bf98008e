package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService turns credentials into session tokens.
type AuthService struct {
	Store   store.Store
	Hasher  *cryptox.PasswordHasher
	Tokens  *TokenService
	Metrics *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string
}

// Register creates a USER account and signs it in. The password is hashed
// before anything is written, and a request canceled meanwhile writes
// nothing. Duplicate usernames or emails fail with ErrConflict, whether
// spotted up front or by the store's unique constraints.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Token, domain.User, error) {
	l := slogx.FromContext(ctx)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)

	fe := fieldErrors{}
	validateUsername(fe, in.Username)
	validateEmail(fe, in.Email)
	validatePassword(fe, in.Password)
	if err := fe.err(); err != nil {
		return domain.Token{}, domain.User{}, err
	}

	if err := checkAvailable(ctx, s.Store.Users(), in.Username, in.Email); err != nil {
		s.Metrics.Registration(registrationOutcome(err))
		return domain.Token{}, domain.User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.Metrics.Registration(metrics.OutcomeError)
		return domain.Token{}, domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Token{}, domain.User{}, err
	}

	user, err := s.Store.Users().CreateUser(ctx, domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Enabled:      true,
	})
	if err != nil {
		err = mapStoreErr(err)
		s.Metrics.Registration(registrationOutcome(err))
		return domain.Token{}, domain.User{}, err
	}

	token, err := s.Tokens.Mint(user.ID, user.Role)
	if err != nil {
		s.Metrics.Registration(metrics.OutcomeError)
		return domain.Token{}, domain.User{}, err
	}

	s.Metrics.Registration(metrics.OutcomeSuccess)
	l.Info("user registered", slog.Int64("user_id", user.ID))
	return token, user, nil
}

// checkAvailable reports ErrConflict when username or email belongs to an
// existing account. Empty values are not checked. This is a fast path only,
// the store's unique constraints remain the authority.
func checkAvailable(ctx context.Context, users store.Users, username, email string) error {
	if username != "" {
		if _, err := users.GetUserByUsername(ctx, username); err == nil {
			return fmt.Errorf("%w: username already in use", ErrConflict)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if email != "" {
		if _, err := users.GetUserByEmail(ctx, email); err == nil {
			return fmt.Errorf("%w: email already in use", ErrConflict)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return nil
}

func registrationOutcome(err error) string {
	if errors.Is(err, ErrConflict) {
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}

// Authenticate checks a password for the account named by login, which is
// either a username or an email address. Unknown accounts, disabled
// accounts and wrong passwords all fail with ErrInvalidCredentials after
// one password comparison.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (domain.Token, domain.User, error) {
	l := slogx.FromContext(ctx)

	user, err := s.lookup(ctx, strings.TrimSpace(login))
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Burn the same time a real comparison would
		_ = s.Hasher.Verify(password, s.dummy())
		s.Metrics.Authentication(metrics.OutcomeFailure)
		l.Info("authentication failed", slog.String("reason", "unknown_user"))
		return domain.Token{}, domain.User{}, ErrInvalidCredentials
	case err != nil:
		s.Metrics.Authentication(metrics.OutcomeError)
		return domain.Token{}, domain.User{}, err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		s.Metrics.Authentication(metrics.OutcomeFailure)
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Warn("stored password hash unusable", slog.Int64("user_id", user.ID), slog.Any("error", err))
		} else {
			l.Info("authentication failed", slog.String("reason", "wrong_password"), slog.Int64("user_id", user.ID))
		}
		return domain.Token{}, domain.User{}, ErrInvalidCredentials
	}
	if !user.Enabled {
		s.Metrics.Authentication(metrics.OutcomeFailure)
		l.Info("authentication failed", slog.String("reason", "disabled"), slog.Int64("user_id", user.ID))
		return domain.Token{}, domain.User{}, ErrInvalidCredentials
	}

	s.upgradeHash(ctx, user, password)

	token, err := s.Tokens.Mint(user.ID, user.Role)
	if err != nil {
		s.Metrics.Authentication(metrics.OutcomeError)
		return domain.Token{}, domain.User{}, err
	}

	s.Metrics.Authentication(metrics.OutcomeSuccess)
	l.Info("user authenticated", slog.Int64("user_id", user.ID))
	return token, user, nil
}

func (s *AuthService) lookup(ctx context.Context, login string) (domain.User, error) {
	if login == "" {
		return domain.User{}, store.ErrNotFound
	}
	if strings.Contains(login, "@") {
		return s.Store.Users().GetUserByEmail(ctx, normalizeEmail(login))
	}
	return s.Store.Users().GetUserByUsername(ctx, login)
}

// upgradeHash rewrites bcrypt or outdated argon2id hashes after a
// successful login. Failure only costs another upgrade attempt next time.
func (s *AuthService) upgradeHash(ctx context.Context, user domain.User, password string) {
	if !s.Hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		l.Warn("password rehash failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.Int64("user_id", user.ID))
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("tabtodo-timing-equalizer")
	})
	return s.dummyHash
}
