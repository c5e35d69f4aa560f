package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Armandase/seconde-main/pkg/health"
	"github.com/Armandase/seconde-main/pkg/middleware"
	"github.com/Armandase/seconde-main/pkg/pagination"
	"github.com/Armandase/seconde-main/services/search/internal/service"
)

const serviceName = "search"

// RouterConfig holds the HTTP-facing settings of the router.
type RouterConfig struct {
	Environment      string
	CORSOrigins      []string
	Limits           pagination.Limits
	CategoriesMaxAge time.Duration
	RequestTimeout   time.Duration
	PprofEnabled     bool
	PprofCIDRs       []string
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *service.SearchService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Environment, cfg.CORSOrigins)))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// Health check endpoints
	r.Get("/health", healthHandler.LivenessHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	searchHandler := NewSearchHandler(searchService, logger, cfg.Limits)

	r.Get("/api/search", searchHandler.Search)

	r.Route("/api/products", func(r chi.Router) {
		r.With(middleware.CacheControl(cfg.CategoriesMaxAge)).Get("/categories", searchHandler.Categories)
		r.Get("/{id}", searchHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Post("/", searchHandler.IngestProduct)
			r.Post("/bulk", searchHandler.BulkIngest)
		})
	})

	return r
}
