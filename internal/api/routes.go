package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/intel-pipeline/internal/config"
	"github.com/yegors/intel-pipeline/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	registry   *prometheus.Registry
	config     config.ServerConfig
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(queries Querier, cfg config.ServerConfig, logger *logger.Logger) *Router {
	registry := prometheus.NewRegistry()
	return &Router{
		handler:    NewHandler(queries, cfg, logger),
		middleware: NewMiddleware(logger, NewMetrics(registry)),
		registry:   registry,
		config:     cfg,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the HTTP routes. Everything is read-only.
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.Metrics)
	router.Use(r.middleware.CORS(r.config.CORSAllowedOrigins))

	// Dashboard
	router.Get("/", r.handler.GetDashboard)

	// API routes
	router.Route("/api", func(router chi.Router) {
		router.Get("/anomalies", r.handler.GetAnomalies)
		router.Get("/health", r.handler.GetHealth)
	})

	router.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	// Static assets, embedded unless a directory overrides them
	staticHandler := NewStaticFileHandler(r.config.StaticFilesDir, r.logger)
	router.Handle("/static/*", http.StripPrefix("/static/", staticHandler))

	return router
}
