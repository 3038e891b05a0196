// Package http assembles the service's HTTP surface: public flow and registry
// endpoints, the JWT-guarded admin API, health, and metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecollect/internal/platform/middleware"
)

// Deps are the handlers and platform pieces the router mounts.
type Deps struct {
	Flow     Registrar
	Registry Registrar
	Admin    Registrar

	AdminValidator *middleware.AdminValidator
	Limiter        *middleware.Limiter
	Logger         *slog.Logger
	Health         func(ctx context.Context) error
}

// Registrar is anything that can mount routes on a chi router.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(deps.Limiter, deps.Logger))
			deps.Flow.Register(r)
			deps.Registry.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.AdminValidator, deps.Logger))
			deps.Admin.Register(r)
		})
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
