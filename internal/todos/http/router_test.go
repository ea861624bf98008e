package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	httpapi "github.com/aussiebroadwan/tabtodo/internal/todos/http"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
	"github.com/aussiebroadwan/tabtodo/pkg/todosdk"
)

const (
	adminName     = "admin"
	adminPassword = "admin-password"
)

var generous = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

type testEnv struct {
	router *httpapi.Router
	store  store.Store
}

type envOption func(*httpapi.Router)

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "todos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmHS256,
		Secret:    []byte(strings.Repeat("s", jwtx.MinHS256SecretLen)),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegisterer(reg, reg)
	hasher := &cryptox.PasswordHasher{
		Pepper: "router-test",
		Params: cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	}

	secOpts := httpx.DefaultSecurityOptions()
	secOpts.AllowedOrigins = []string{"https://app.example"}
	logger := slogx.New(slogx.Config{Service: "todos-test", Level: "error"})

	r := httpapi.NewRouter(httpx.NewSecurityConfig(secOpts), km, "test", st, m, logger)
	r.TokenService = service.NewTokenService(km, "tabtodo-test", time.Hour)
	r.TokenService.Metrics = m
	r.AuthService = &service.AuthService{Store: st, Hasher: hasher, Tokens: r.TokenService, Metrics: m}
	r.UserService = &service.UserService{Store: st, Hasher: hasher, Metrics: m}
	r.TodoService = &service.TodoService{Store: st, Metrics: m}
	r.RateLimits = httpapi.RateLimits{Auth: generous, API: generous, Public: generous}
	for _, o := range opts {
		o(r)
	}
	r.ApplyRoutes()

	boot := &service.BootstrapService{Users: r.UserService}
	_, created, err := boot.EnsureAdmin(context.Background(), service.RegisterInput{
		Username: adminName, Email: "admin@example.com", Password: adminPassword,
	})
	require.NoError(t, err)
	require.True(t, created)

	return &testEnv{router: r, store: st}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) register(t *testing.T, name string) todosdk.TokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/register", "", todosdk.RegisterRequest{
		Username: name, Email: name + "@example.com", Password: name + "-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[todosdk.TokenResponse](t, rec)
}

func (e *testEnv) login(t *testing.T, name, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", todosdk.AuthenticateRequest{
		Username: name, Password: password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[todosdk.TokenResponse](t, rec).Token
}

func (e *testEnv) createTodo(t *testing.T, token, title string, completed bool) todosdk.TodoResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/todos", token, todosdk.TodoRequest{Title: title, Completed: completed})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[todosdk.TodoResponse](t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", httpx.DefaultCookieName)
	return nil
}

func TestEndToEndFlow(t *testing.T) {
	env := newEnv(t)

	// Register
	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", todosdk.RegisterRequest{
		Username: "alice", Email: "Alice@Example.com", Password: "alice-password",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[todosdk.TokenResponse](t, rec)
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "Bearer", reg.TokenType)
	require.Equal(t, 3600, reg.ExpiresIn)
	require.Equal(t, "alice@example.com", reg.User.Email)
	require.Equal(t, "USER", reg.User.Role)
	require.Equal(t, reg.Token, sessionCookie(t, rec).Value)
	require.NotContains(t, rec.Body.String(), "password")

	// Authenticate, by username and by email
	alice := env.login(t, "alice", "alice-password")
	env.login(t, "alice@example.com", "alice-password")

	// Wrong secret and unknown user fail the same way
	for _, creds := range []todosdk.AuthenticateRequest{
		{Username: "alice", Password: "wrong-password"},
		{Username: "nobody", Password: "alice-password"},
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"unauthenticated","error_description":"invalid username or password"}`, rec.Body.String())
	}

	// Own todo
	todo := env.createTodo(t, alice, "buy milk", false)
	rec = env.do(t, http.MethodGet, "/api/todos/"+strconv.FormatInt(todo.ID, 10), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Last-Modified"))
	require.Equal(t, "buy milk", decode[todosdk.TodoResponse](t, rec).Title)

	// Somebody else's todo
	bob := env.register(t, "bob").Token
	rec = env.do(t, http.MethodGet, "/api/todos/"+strconv.FormatInt(todo.ID, 10), bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"forbidden","error_description":"access denied"}`, rec.Body.String())

	// No token
	rec = env.do(t, http.MethodGet, "/api/todos", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	// Logout clears the cookie, the token itself stays valid until it expires
	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	c := sessionCookie(t, rec)
	require.Empty(t, c.Value)
	require.Equal(t, -1, c.MaxAge)

	rec = env.do(t, http.MethodGet, "/api/todos", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCookieSession(t *testing.T) {
	env := newEnv(t)
	env.register(t, "carol")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", todosdk.AuthenticateRequest{
		Username: "carol", Password: "carol-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(sessionCookie(t, rec))
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)

	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	require.Equal(t, "carol", decode[todosdk.UserResponse](t, out).Username)
	require.Equal(t, "no-store", out.Header().Get("Cache-Control"))
}

func TestRegisterShortPassword(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", todosdk.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, env.login(t, "alice", "pw"))
}

func TestRegisterErrors(t *testing.T) {
	env := newEnv(t)
	env.register(t, "dave")

	tests := []struct {
		name  string
		body  any
		want  int
		field string
	}{
		{"duplicate username", todosdk.RegisterRequest{Username: "dave", Email: "other@example.com", Password: "long-password"}, http.StatusConflict, ""},
		{"duplicate email", todosdk.RegisterRequest{Username: "dave2", Email: "DAVE@example.com", Password: "long-password"}, http.StatusConflict, ""},
		{"missing password", todosdk.RegisterRequest{Username: "erin", Email: "erin@example.com"}, http.StatusBadRequest, "password"},
		{"bad email", todosdk.RegisterRequest{Username: "erin", Email: "not-an-email", Password: "long-password"}, http.StatusBadRequest, "email"},
		{"bad username", todosdk.RegisterRequest{Username: "e rin", Email: "erin@example.com", Password: "long-password"}, http.StatusBadRequest, "username"},
		{"unknown field", map[string]string{"username": "erin", "role": "ADMIN"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.field != "" {
				resp := decode[todosdk.ErrorResponse](t, rec)
				require.Equal(t, todosdk.ErrorCodeInvalidInput, resp.Error)
				require.Contains(t, resp.Fields, tt.field)
			}
		})
	}
}

func TestUsersRoutes(t *testing.T) {
	env := newEnv(t)
	admin := env.login(t, adminName, adminPassword)
	frank := env.register(t, "frank")
	frankPath := "/api/users/" + strconv.FormatInt(frank.User.ID, 10)

	t.Run("admin lists users", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/users?limit=1", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
		require.Len(t, decode[[]todosdk.UserResponse](t, rec), 1)
	})

	t.Run("users cannot list", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/users", frank.Token, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates user", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users", admin, todosdk.CreateUserRequest{
			Username: "grace", Email: "grace@example.com", Password: "grace-password", Role: "admin",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		u := decode[todosdk.UserResponse](t, rec)
		require.Equal(t, "ADMIN", u.Role)
		require.Equal(t, "/api/users/"+strconv.FormatInt(u.ID, 10), rec.Header().Get("Location"))
	})

	t.Run("users cannot create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users", frank.Token, todosdk.CreateUserRequest{
			Username: "mallory", Email: "mallory@example.com", Password: "mallory-password",
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("me and by id agree", func(t *testing.T) {
		me := env.do(t, http.MethodGet, "/api/users/me", frank.Token, nil)
		byID := env.do(t, http.MethodGet, frankPath, frank.Token, nil)
		require.Equal(t, http.StatusOK, me.Code)
		require.Equal(t, http.StatusOK, byID.Code)
		require.Equal(t, me.Body.String(), byID.Body.String())
	})

	t.Run("user cannot read another user", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/users/1", frank.Token, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("user cannot promote self", func(t *testing.T) {
		role := "ADMIN"
		rec := env.do(t, http.MethodPatch, "/api/users/me", frank.Token, todosdk.PatchUserRequest{Role: &role})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("user patches own username", func(t *testing.T) {
		name := "frankie"
		rec := env.do(t, http.MethodPatch, "/api/users/me", frank.Token, todosdk.PatchUserRequest{Username: &name})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "frankie", decode[todosdk.UserResponse](t, rec).Username)
	})

	t.Run("replace may echo own role and enabled", func(t *testing.T) {
		user, admin, on := "USER", "ADMIN", true

		rec := env.do(t, http.MethodPut, "/api/users/me", frank.Token, todosdk.ReplaceUserRequest{
			Username: "frankie", Email: "frank@example.com", Role: &user, Enabled: &on,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "USER", decode[todosdk.UserResponse](t, rec).Role)

		rec = env.do(t, http.MethodPut, "/api/users/me", frank.Token, todosdk.ReplaceUserRequest{
			Username: "frankie", Email: "frank@example.com", Role: &admin, Enabled: &on,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("patch with empty password keeps it", func(t *testing.T) {
		empty := ""
		rec := env.do(t, http.MethodPatch, "/api/users/me", frank.Token, todosdk.PatchUserRequest{Password: &empty})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEmpty(t, env.login(t, "frankie", "frank-password"))
	})

	t.Run("replace needs username and email", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/users/me", frank.Token, todosdk.ReplaceUserRequest{Username: "frankie"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad and missing ids", func(t *testing.T) {
		require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users/abc", admin, nil).Code)
		require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users/0", admin, nil).Code)
		require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/users/999", admin, nil).Code)
	})

	t.Run("bad page", func(t *testing.T) {
		require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users?limit=0", admin, nil).Code)
		require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/users?offset=-1", admin, nil).Code)
	})

	t.Run("disabled user cannot sign in", func(t *testing.T) {
		off := false
		rec := env.do(t, http.MethodPatch, frankPath, admin, todosdk.PatchUserRequest{Enabled: &off})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", todosdk.AuthenticateRequest{
			Username: "frankie", Password: "frank-password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin deletes user and their todos", func(t *testing.T) {
		henry := env.register(t, "henry")
		todo := env.createTodo(t, henry.Token, "gone soon", false)

		rec := env.do(t, http.MethodDelete, "/api/users/"+strconv.FormatInt(henry.User.ID, 10), admin, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/todos/"+strconv.FormatInt(todo.ID, 10), admin, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTodosRoutes(t *testing.T) {
	env := newEnv(t)
	ivy := env.register(t, "ivy").Token
	jack := env.register(t, "jack").Token

	open := env.createTodo(t, ivy, "open", false)
	env.createTodo(t, ivy, "closed", true)
	env.createTodo(t, jack, "jack's", false)
	openPath := "/api/todos/" + strconv.FormatInt(open.ID, 10)

	t.Run("list own only", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/todos", ivy, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
		require.Len(t, decode[[]todosdk.TodoResponse](t, rec), 2)
	})

	t.Run("filter by completed", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/todos?completed=true", ivy, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		todos := decode[[]todosdk.TodoResponse](t, rec)
		require.Len(t, todos, 1)
		require.Equal(t, "closed", todos[0].Title)
		require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	})

	t.Run("bad filter", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/todos?completed=maybe", ivy, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[todosdk.ErrorResponse](t, rec).Fields, "completed")
	})

	t.Run("create sets location", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/todos", ivy, todosdk.TodoRequest{Title: "new"})
		require.Equal(t, http.StatusCreated, rec.Code)
		created := decode[todosdk.TodoResponse](t, rec)
		require.Equal(t, "/api/todos/"+strconv.FormatInt(created.ID, 10), rec.Header().Get("Location"))
	})

	t.Run("create rejects blank title", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/todos", ivy, todosdk.TodoRequest{Title: "  "})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decode[todosdk.ErrorResponse](t, rec).Fields, "title")
	})

	t.Run("patch applies present fields only", func(t *testing.T) {
		done := true
		rec := env.do(t, http.MethodPatch, openPath, ivy, todosdk.PatchTodoRequest{Completed: &done})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[todosdk.TodoResponse](t, rec)
		require.True(t, got.Completed)
		require.Equal(t, "open", got.Title)
	})

	t.Run("replace overwrites", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, openPath, ivy, todosdk.TodoRequest{Title: "renamed", Description: "d"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[todosdk.TodoResponse](t, rec)
		require.Equal(t, "renamed", got.Title)
		require.False(t, got.Completed)
	})

	t.Run("foreign writes are forbidden", func(t *testing.T) {
		title := "hijacked"
		require.Equal(t, http.StatusForbidden, env.do(t, http.MethodPatch, openPath, jack, todosdk.PatchTodoRequest{Title: &title}).Code)
		require.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, openPath, jack, todosdk.TodoRequest{Title: title}).Code)
		require.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, openPath, jack, nil).Code)
	})

	t.Run("missing todo", func(t *testing.T) {
		require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/todos/999", ivy, nil).Code)
	})

	t.Run("delete", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, openPath, ivy, nil).Code)
		require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, openPath, ivy, nil).Code)
	})
}

func TestRateLimits(t *testing.T) {
	once := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Hour, Burst: 1}
	env := newEnv(t, func(r *httpapi.Router) {
		r.RateLimits.Auth = once
		r.RateLimits.API = once
		r.RateLimits.Public = once
	})

	t.Run("register", func(t *testing.T) {
		env.register(t, "kate")
		rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", todosdk.RegisterRequest{
			Username: "liam", Email: "liam@example.com", Password: "liam-password",
		})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("authenticate is keyed by username", func(t *testing.T) {
		env.login(t, adminName, adminPassword)
		rec := env.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", todosdk.AuthenticateRequest{
			Username: adminName, Password: adminPassword,
		})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		// Same address, different account
		rec = env.do(t, http.MethodPost, "/api/v1/auth/authenticate", "", todosdk.AuthenticateRequest{
			Username: "kate", Password: "kate-password",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api shares one bucket per user", func(t *testing.T) {
		token, err := env.router.TokenService.Mint(1, domain.RoleAdmin)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/todos", token.Value, nil).Code)
		require.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/users/me", token.Value, nil).Code)
	})

	t.Run("logout shares the public bucket", func(t *testing.T) {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/livez", "", nil).Code)
		require.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/api/v1/auth/logout", "", nil).Code)
		require.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/metrics", "", nil).Code)
	})
}

func TestOptionsAllow(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		path string
		want string
	}{
		{"/api/todos", "GET, POST, OPTIONS"},
		{"/api/todos/1", "GET, PUT, PATCH, DELETE, OPTIONS"},
		{"/api/users", "GET, POST, OPTIONS"},
		{"/api/users/me", "GET, PUT, PATCH, DELETE, OPTIONS"},
		{"/api/users/7", "GET, PUT, PATCH, DELETE, OPTIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodOptions, tt.path, "", nil)
			require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
			require.Equal(t, tt.want, rec.Header().Get("Allow"))
			require.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestSystemRoutes(t *testing.T) {
	env := newEnv(t)

	t.Run("livez", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", decode[todosdk.HealthResponse](t, rec).Status)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		h := decode[todosdk.HealthResponse](t, rec)
		require.Equal(t, "test", h.Version)
		require.NotNil(t, h.Checks)
		require.Equal(t, "ok", h.Checks.Database)
		require.Equal(t, "ok", h.Checks.Signer)
	})

	t.Run("readyz with bad token is still public", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/readyz", "garbage", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		env.do(t, http.MethodGet, "/api/todos", "", nil)
		rec := env.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, "tabtodo_http_requests_total")
		require.Contains(t, body, `route="GET /api/todos"`)
	})

	t.Run("swagger", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "TabTodo API")
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("security headers", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/livez", "", nil)
		require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

func TestRouterWithoutRoutes(t *testing.T) {
	r := httpapi.NewRouter(httpx.NewSecurityConfig(httpx.DefaultSecurityOptions()), nil, "test", nil, nil, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
