package service_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "tabtodo-test"
	testPassword = "correct horse battery"
)

// Whole seconds, NumericDate drops anything finer
var startTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fastHasher keeps the argon2id format at a cost tests can afford.
func fastHasher() *cryptox.PasswordHasher {
	return &cryptox.PasswordHasher{
		Pepper: "test-pepper",
		Params: cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}
}

func newTokenService(t *testing.T, clock *fakeClock) *service.TokenService {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmHS256,
		Secret:    []byte(strings.Repeat("k", jwtx.MinHS256SecretLen)),
	})
	require.NoError(t, err)

	ts := service.NewTokenService(km, testIssuer, 0)
	ts.Now = clock.Now
	return ts
}

type env struct {
	store  store.Store
	clock  *fakeClock
	hasher *cryptox.PasswordHasher
	tokens *service.TokenService
	auth   *service.AuthService
	users  *service.UserService
	todos  *service.TodoService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return newEnvWithStore(t, st)
}

func newEnvWithStore(t *testing.T, st store.Store) *env {
	t.Helper()

	clock := &fakeClock{now: startTime}
	hasher := fastHasher()
	tokens := newTokenService(t, clock)

	return &env{
		store:  st,
		clock:  clock,
		hasher: hasher,
		tokens: tokens,
		auth:   &service.AuthService{Store: st, Hasher: hasher, Tokens: tokens},
		users:  &service.UserService{Store: st, Hasher: hasher},
		todos:  &service.TodoService{Store: st},
	}
}

// register signs up name and returns the identity its token carries.
func (e *env) register(t *testing.T, name string) (domain.Identity, domain.User) {
	t.Helper()
	token, user, err := e.auth.Register(context.Background(), service.RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)

	id, err := e.tokens.Verify(token.Value)
	require.NoError(t, err)
	return id, user
}

// admin creates an administrator straight in the store.
func (e *env) admin(t *testing.T) domain.Identity {
	t.Helper()
	hash, err := e.hasher.Hash(testPassword)
	require.NoError(t, err)

	u, err := e.store.Users().CreateUser(context.Background(), domain.User{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Enabled:      true,
	})
	require.NoError(t, err)
	return u.Identity()
}

func ptr[T any](v T) *T { return &v }
