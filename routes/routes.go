package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/awwsmm/subway/app"
	"github.com/awwsmm/subway/auth"
	"github.com/awwsmm/subway/handlers"
	"github.com/awwsmm/subway/internal/observability"
	submw "github.com/awwsmm/subway/middleware"
	"github.com/awwsmm/subway/models"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Content-Type", submw.SessionHeader,
			auth.AccessTokenHeader, auth.IDTokenHeader, auth.RealmHeader,
		},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/ready", deps.HealthHandler.HandleReadiness)
	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", observability.Handler(deps.Registry))
	}

	// Public pages
	r.Get("/hello", handlers.HandleHello)

	// Login endpoints
	r.Group(func(r chi.Router) {
		if deps.LoginLimiter != nil {
			r.Use(deps.LoginLimiter.Limit)
		}
		r.Post("/login", handlers.AuthLoginHandler(deps))
		r.Post("/login-keycloak", handlers.AuthTokenLoginHandler(deps))
	})

	// Role-gated pages
	authz := deps.AuthMiddleware
	r.With(authz.RequireAuth).Get("/protected", handlers.HandleProtected)
	r.With(authz.RequireRoles(models.RoleUser)).Get("/user-only", handlers.HandleUserOnly)
	r.With(authz.RequireRoles(models.RoleAdmin)).Get("/admin-only", handlers.HandleAdminOnly)
	r.With(authz.RequireAuth).Get("/me", handlers.HandleMe)

	// Posts and authors: reads are public, writes need a session
	content := deps.ContentHandler
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", content.HandleListPosts)
		r.Get("/{id}", content.HandleGetPost)
		r.With(authz.RequireAuth).Post("/", content.HandleCreatePosts)
	})
	r.Route("/authors", func(r chi.Router) {
		r.Get("/", content.HandleListAuthors)
		r.Get("/{id}", content.HandleGetAuthor)
		r.With(authz.RequireAuth).Post("/", content.HandleCreateAuthors)
	})

	// 404 handler
	r.NotFound(handlers.HandleNotFound)

	return r
}
