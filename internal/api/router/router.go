// Package router assembles the chi route tree for the scheduling API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ridgelineauto/scheduling-api/internal/http/handlers"
	httpmiddleware "github.com/ridgelineauto/scheduling-api/internal/http/middleware"
	"github.com/ridgelineauto/scheduling-api/internal/observability/metrics"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger     *logging.Logger
	Scheduling *handlers.SchedulingHandler
	Health     *handlers.HealthHandler
	Admin      *handlers.AdminHandler

	// APIKey guards the booking endpoints. Empty disables the check.
	APIKey string
	// AdminAuthSecret guards /admin. Empty disables the routes entirely.
	AdminAuthSecret string

	MetricsHandler     http.Handler
	Metrics            *metrics.SchedulingMetrics
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))
	}

	// Public endpoints (probes, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Health.Health)
		public.Get("/health/live", cfg.Health.Live)
		public.Get("/health/ready", cfg.Health.Ready)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Booking widget endpoints
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.APIKey(cfg.APIKey))
		api.Get("/services", cfg.Scheduling.ListServices)
		api.Get("/availability", cfg.Scheduling.Availability)
		api.Post("/book", cfg.Scheduling.Book)
	})

	// Operator endpoints
	if cfg.Admin != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/cache/clear", cfg.Admin.ClearCache)
			admin.Get("/bookings", cfg.Admin.ListBookings)
		})
	}

	return r
}
