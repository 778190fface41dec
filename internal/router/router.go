// Package router sets up all HTTP routes and middleware chains for the
// presently API. Sign-in lives under /auth, the JSON API under /api.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presently/internal/handlers"
	"presently/internal/middleware"
)

// Deps collects everything the router mounts.
type Deps struct {
	Sessions middleware.Sessions
	Verifier middleware.TokenVerifier // nil disables bearer tokens
	Users    middleware.UserFinder

	Posts *handlers.Posts
	Auth  *handlers.Auth
	Roles *handlers.Users

	// GenerateLimiter throttles the AI generation endpoints. Nil disables it.
	GenerateLimiter middleware.Counter

	SecureCookies bool

	// Checks are run by /health; any failure turns the answer into 503.
	Checks map[string]Check
}

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

// checkTimeout bounds each health check.
const checkTimeout = 2 * time.Second

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewSecureHeaders(d.SecureCookies))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	// Health and metrics: no auth, no CSRF.
	r.Get("/health", healthHandler(d.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Sessions, d.Verifier, d.Users))
		r.Use(middleware.NewCSRF(d.SecureCookies))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", d.Auth.GoogleLogin)
			r.Get("/google/callback", d.Auth.GoogleCallback)
			r.Post("/logout", d.Auth.Logout)

			// Connecting Pinterest attaches a token to the signed-in user.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/pinterest/login", d.Auth.PinterestLogin)
				r.Get("/pinterest/callback", d.Auth.PinterestCallback)
			})
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.RequireActor)

			r.Get("/me", d.Posts.Me)
			r.Put("/users/{id}/role", d.Roles.SetRole)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", d.Posts.List)
				r.Post("/", d.Posts.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Posts.Get)
					r.Put("/", d.Posts.Update)
					r.Delete("/", d.Posts.Delete)

					r.Group(func(r chi.Router) {
						if d.GenerateLimiter != nil {
							r.Use(middleware.RateLimit(d.GenerateLimiter))
						}
						r.Post("/generate-text", d.Posts.GenerateText)
						r.Post("/generate-image", d.Posts.GenerateImage)
					})

					r.Post("/approve", d.Posts.Approve)
					r.Post("/publish/blogger", d.Posts.PublishBlogger)
					r.Post("/publish/pinterest", d.Posts.PublishPinterest)
				})
			})
		})
	})

	return r
}

// healthHandler reports "ok" when every check passes and "degraded" with
// 503 otherwise. Failed checks are named, their errors only logged.
func healthHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := check(ctx)
			cancel()
			if err != nil {
				slog.Warn("health check failed", "check", name, "error", err)
				results[name] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}
		writeJSON(w, code, map[string]any{"status": status, "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
