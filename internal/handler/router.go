package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskflow/taskflow/internal/middleware"
	"github.com/taskflow/taskflow/internal/realtime"
	"github.com/taskflow/taskflow/internal/service"
)

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	Logger *slog.Logger

	Auth  *service.AuthService
	Tasks *service.TaskService

	// Stream serves the WebSocket and SSE routes. Nil disables them.
	Stream *realtime.StreamHandler
	// Metrics serves /metrics. Nil disables it.
	Metrics http.Handler

	// Store and Cache back /readyz. Cache may be nil.
	Store HealthChecker
	Cache HealthChecker

	RateLimit    middleware.RateLimitConfig
	CORS         middleware.CORSConfig
	Security     middleware.SecurityConfig
	MaxBodyBytes int64
}

// NewRouter wires the middleware chain and every route.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	}

	h := New()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Get("/", h.Hello)

	health := NewHealthHandler(cfg.Store, cfg.Cache)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	authn := middleware.Auth(middleware.AuthConfig{
		Logger:        cfg.Logger,
		Authenticator: cfg.Auth,
	})

	rateLimit := cfg.RateLimit
	if rateLimit.Logger == nil {
		rateLimit.Logger = cfg.Logger
	}

	authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
	taskHandler := NewTaskHandler(cfg.Tasks, cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimitAuth(rateLimit)).Post("/register", authHandler.Register)
			r.With(middleware.RateLimitAuth(rateLimit)).Post("/login", authHandler.Login)
			r.With(authn).Get("/me", authHandler.Me)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(authn)
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Patch("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)
		})

		if cfg.Stream != nil {
			r.Route("/stream", func(r chi.Router) {
				r.Use(middleware.Auth(middleware.AuthConfig{
					Logger:          cfg.Logger,
					Authenticator:   cfg.Auth,
					AllowQueryToken: true,
				}))
				r.Get("/ws", cfg.Stream.WebSocket)
				r.Get("/events", cfg.Stream.Events)
			})
		}
	})

	return r
}
