package api

import (
	"net/http"

	"github.com/dom/tps-identity/internal/api/handlers"
	"github.com/dom/tps-identity/internal/api/middleware"
	"github.com/dom/tps-identity/internal/metrics"
	"github.com/dom/tps-identity/internal/service"
	"github.com/dom/tps-identity/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Deps is everything the router needs. DBPing and Gatherer may be nil.
type Deps struct {
	Services *service.Services
	Hub      *websocket.Hub
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	DBPing   handlers.DBPinger
	Log      *zap.Logger
}

func NewRouter(deps Deps) http.Handler {
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.Logging(deps.Log, rec))
	r.Use(chiMiddleware.Recoverer)

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Log)
	userHandler := handlers.NewUserHandler(deps.Services.Auth, deps.Log)
	adminHandler := handlers.NewAdminHandler(deps.Services.Auth, deps.Log)
	eventsHandler := handlers.NewEventsHandler(deps.Hub, deps.Services.Auth, deps.Log)
	healthHandler := handlers.NewHealthHandler(deps.DBPing, deps.Log)

	r.Get("/health", healthHandler.Live)
	r.Get("/health/db", healthHandler.Database)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.Services.Auth))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.Auth(deps.Services.Auth))
			r.Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)
			r.Patch("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
			r.Patch("/{id}/password", userHandler.ChangePassword)
			r.Patch("/{id}/role", userHandler.SetRole)
		})

		r.Route("/admin", func(r chi.Router) {
			// WebSocket endpoint, authenticated by ?token=
			if deps.Hub != nil {
				r.Get("/events", eventsHandler.Handle)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(deps.Services.Auth))
				r.Post("/users", adminHandler.CreateAdmin)
				r.Get("/events/recent", adminHandler.RecentEvents)
			})
		})
	})

	return r
}
