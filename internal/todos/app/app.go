package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	httpapi "github.com/aussiebroadwan/tabtodo/internal/todos/http"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store/drivers/postgres"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabtodo/pkg/cryptox"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	// ReadHeaderTimeout bounds slow clients sending headers.
	ReadHeaderTimeout = 3 * time.Second
)

// Application holds the todos service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	hasher     *cryptox.PasswordHasher
	metrics    *metrics.Metrics

	tokenService     *service.TokenService
	authService      *service.AuthService
	userService      *service.UserService
	todoService      *service.TodoService
	bootstrapService *service.BootstrapService

	server *http.Server
	router *httpapi.Router
}

// New validates cfg and initialises every dependency. Nothing listens yet.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "todos-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}
	ctx = slogx.WithContext(ctx, app.logger)

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewPasswordHasher(pepper)

	keyManager, err := InitAuthKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	app.initServices()

	if cfg.BootstrapAdmin() {
		_, _, err := app.bootstrapService.EnsureAdmin(ctx, service.RegisterInput{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			_ = app.db.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	app.initHTTP()
	return app, nil
}

// Handler returns the root HTTP handler, for serving without Run.
func (app *Application) Handler() http.Handler { return app.router }

// Run serves until ctx is canceled or the listener fails, then shuts down
// gracefully.
func (app *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		_ = app.db.Close()
		return fmt.Errorf("listen: %w", err)
	}
	return app.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (app *Application) Serve(ctx context.Context, ln net.Listener) error {
	app.logger.Info("todos service starting", "addr", ln.Addr().String(), "version", BuildVersion)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutdown requested", "cause", context.Cause(gctx))
		return app.Shutdown()
	})
	return g.Wait()
}

// Shutdown drains in-flight requests for at most the configured grace
// period and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down todos service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("todos service stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL, postgres.Options{
			MaxOpenConns:    app.cfg.DBMaxOpenConns,
			MaxIdleConns:    app.cfg.DBMaxOpenConns,
			ConnMaxLifetime: app.cfg.DBConnLifetime,
		})
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initServices() {
	app.tokenService = service.NewTokenService(app.keyManager, app.cfg.Issuer, app.cfg.SessionTTL)
	app.tokenService.Metrics = app.metrics

	app.authService = &service.AuthService{
		Store:   app.db,
		Hasher:  app.hasher,
		Tokens:  app.tokenService,
		Metrics: app.metrics,
	}
	app.userService = &service.UserService{Store: app.db, Hasher: app.hasher, Metrics: app.metrics}
	app.todoService = &service.TodoService{Store: app.db, Metrics: app.metrics}
	app.bootstrapService = &service.BootstrapService{Users: app.userService}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpx.NewSecurityConfig(app.cfg.Security),
		app.keyManager,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.UserService = app.userService
	router.TodoService = app.todoService
	router.RateLimits = app.cfg.RateLimits
	if app.cfg.TrustProxy {
		router.ClientIP = httpx.ForwardedIPKeyExtractor
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(app.cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}
