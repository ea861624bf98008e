package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabtodo/internal/todos/domain"
	"github.com/aussiebroadwan/tabtodo/internal/todos/metrics"
	"github.com/aussiebroadwan/tabtodo/internal/todos/service"
	"github.com/aussiebroadwan/tabtodo/internal/todos/store"
	"github.com/aussiebroadwan/tabtodo/pkg/httpx"
	"github.com/aussiebroadwan/tabtodo/pkg/jwtx"
	"github.com/aussiebroadwan/tabtodo/pkg/slogx"

	_ "github.com/aussiebroadwan/tabtodo/api/todos" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits holds the limiter profile of each route group.
type RateLimits struct {
	// Auth covers register and authenticate
	Auth httpx.RateLimitConfig `yaml:"auth"`
	// API covers every authenticated route, per user
	API httpx.RateLimitConfig `yaml:"api"`
	// Public covers health probes, metrics and logout, per client address
	Public httpx.RateLimitConfig `yaml:"public"`
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		Auth:   httpx.StrictLimit,
		API:    httpx.ModerateLimit,
		Public: httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	security     httpx.SecurityConfig
	keys         *jwtx.KeyManager
	metrics      *metrics.Metrics
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	TokenService *service.TokenService
	AuthService  *service.AuthService
	UserService  *service.UserService
	TodoService  *service.TodoService

	RateLimits RateLimits
	// ClientIP keys the per-address limiters. Defaults to the connection
	// peer address.
	ClientIP httpx.KeyExtractor
}

func NewRouter(
	security httpx.SecurityConfig,
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		security:     security,
		keys:         keys,
		metrics:      m,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		RateLimits:   DefaultRateLimits(),
		ClientIP:     httpx.IPKeyExtractor,
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Set the services, RateLimits and ClientIP before calling it.
func (r *Router) ApplyRoutes() {
	perUser := r.perUser()
	// Logout, health checks and metrics share one bucket per IP
	public := httpx.NewRateLimiter(r.RateLimits.Public, r.ClientIP).Middleware()

	r.registerAuth(public)
	r.registerUsers(perUser, public)
	r.registerTodos(perUser, public)
	r.registerSystem(public)

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())

	// Authentication runs before routing, so every route that is not
	// public in the security config sees an identity
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		r.instrument,
		httpx.SecurityHeaders(),
		httpx.CORS(r.security),
		httpx.AuthnMiddleware(r.security, r.TokenService.Verify),
	}
	r.handler = httpx.Chain(r.Mux, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TabTodo API
//	@version		0.1.0
//	@description	Todo lists behind stateless JWT sessions.
//	@description
//	@description				Register or authenticate to receive a token, then send it as a Bearer header or let the browser send the `jwt` cookie.
//	@description				Users see and change only their own todos and account. Administrators can do everything.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tabtodo
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.handler == nil {
		http.Error(w, "routes not applied", http.StatusServiceUnavailable)
		return
	}
	r.handler.ServeHTTP(w, req)
}

func (r *Router) registerAuth(public httpx.Middleware) {
	h := &AuthHandler{AuthService: r.AuthService, Security: r.security}

	// Register - strict rate limit by IP (account creation spam)
	r.Mux.Handle("POST /api/v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitMiddleware(r.RateLimits.Auth, r.ClientIP),
		),
	)

	// Authenticate - strict rate limit by IP + username (password guessing)
	r.Mux.Handle("POST /api/v1/auth/authenticate",
		httpx.Chain(http.HandlerFunc(h.HandleAuthenticate),
			httpx.RateLimitMiddleware(r.RateLimits.Auth,
				httpx.CompositeKeyExtractor("|", r.ClientIP, httpx.JSONFieldKeyExtractor("username")),
			),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout), public),
	)
}

// perUser shares one bucket per user across every authenticated route.
func (r *Router) perUser() httpx.Middleware {
	return httpx.NewRateLimiter(r.RateLimits.API, httpx.IdentityKeyExtractor(func(id domain.Identity) string {
		return strconv.FormatInt(id.SubjectID, 10)
	})).Middleware()
}

func (r *Router) registerUsers(limit, public httpx.Middleware) {
	h := &UsersHandler{UserService: r.UserService}

	// Administration - RequireRole(ADMIN) inside the service
	r.Mux.Handle("GET /api/users", httpx.Chain(http.HandlerFunc(h.HandleList), limit))
	r.Mux.Handle("POST /api/users", httpx.Chain(http.HandlerFunc(h.HandleCreate), limit))
	r.Mux.Handle("OPTIONS /api/users", httpx.Chain(allow(http.MethodGet, http.MethodPost), public))

	// /me is more specific than /{id} and wins the match
	for _, path := range []string{"/api/users/me", "/api/users/{id}"} {
		r.Mux.Handle("GET "+path, httpx.Chain(http.HandlerFunc(h.HandleGet), limit))
		r.Mux.Handle("PUT "+path, httpx.Chain(http.HandlerFunc(h.HandleReplace), limit))
		r.Mux.Handle("PATCH "+path, httpx.Chain(http.HandlerFunc(h.HandlePatch), limit))
		r.Mux.Handle("DELETE "+path, httpx.Chain(http.HandlerFunc(h.HandleDelete), limit))
		r.Mux.Handle("OPTIONS "+path, httpx.Chain(allow(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete), public))
	}
}

func (r *Router) registerTodos(limit, public httpx.Middleware) {
	h := &TodosHandler{TodoService: r.TodoService}

	r.Mux.Handle("GET /api/todos", httpx.Chain(http.HandlerFunc(h.HandleList), limit))
	r.Mux.Handle("POST /api/todos", httpx.Chain(http.HandlerFunc(h.HandleCreate), limit))
	r.Mux.Handle("GET /api/todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleGet), limit))
	r.Mux.Handle("PUT /api/todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleReplace), limit))
	r.Mux.Handle("PATCH /api/todos/{id}", httpx.Chain(http.HandlerFunc(h.HandlePatch), limit))
	r.Mux.Handle("DELETE /api/todos/{id}", httpx.Chain(http.HandlerFunc(h.HandleDelete), limit))

	r.Mux.Handle("OPTIONS /api/todos", httpx.Chain(allow(http.MethodGet, http.MethodPost), public))
	r.Mux.Handle("OPTIONS /api/todos/{id}", httpx.Chain(allow(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete), public))
}

// allow answers a plain OPTIONS request with the methods a resource supports.
// CORS preflights are handled earlier and never get here.
func allow(methods ...string) http.Handler {
	value := strings.Join(append(methods, http.MethodOptions), ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", value)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (r *Router) registerSystem(public httpx.Middleware) {
	// Health checks and metrics - lenient rate limits (monitoring systems poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), public),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys), public),
	)
	r.Mux.Handle("GET /metrics",
		httpx.Chain(r.metrics.Handler(), public),
	)
}
