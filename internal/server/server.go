package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swgui "github.com/swaggest/swgui/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freema/docsgate/internal/catalog"
	"github.com/freema/docsgate/internal/config"
	"github.com/freema/docsgate/internal/merge"
	"github.com/freema/docsgate/internal/redisclient"
	"github.com/freema/docsgate/internal/server/handlers"
	"github.com/freema/docsgate/internal/server/middleware"
	"github.com/freema/docsgate/internal/swaggerui"
	"github.com/freema/docsgate/internal/upstream"
)

const (
	apiDocsPath   = "/v3/api-docs"
	apiDocsUIPath = "/v3/api-docs/ui"
)

// Deps are the components the server routes to. Relay and Redis are
// optional; Cache is probed by /health when set.
type Deps struct {
	Catalog  *catalog.Catalog
	Source   upstream.Source
	Document *merge.Document
	Relay    http.Handler
	Redis    *redisclient.Client
	Cache    handlers.Pinger
}

// Server is the HTTP server.
type Server struct {
	httpServer *http.Server
	health     *handlers.HealthHandler
}

// New creates and configures the HTTP server with all routes and middleware.
func New(cfg *config.Config, deps Deps, version string) *Server {
	checks := map[string]handlers.Pinger{}
	if deps.Cache != nil {
		checks["cache"] = deps.Cache
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	healthHandler := handlers.NewHealthHandler(checks, version)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(NewRouter(cfg, deps, healthHandler), "docsgate"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		health:     healthHandler,
	}
}

// NewRouter builds the route tree. It is separate from New so tests can
// exercise it with httptest.
func NewRouter(cfg *config.Config, deps Deps, health *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	// Health and metrics endpoints (no timeout, no CORS)
	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	docs := handlers.NewDocsHandler(swaggerui.NewPage(cfg.UI.Title, cfg.UI.AssetBase), deps.Catalog, cfg.UI.Title)
	specs := handlers.NewSpecsHandler(deps.Catalog, deps.Source, cfg.Server.TrustForwardedHost)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/swagger-ui", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/swagger-ui/", http.StatusMovedPermanently)
		})
		r.Get("/swagger-ui/", docs.SwaggerUI)
		r.Get("/swagger-ui/index.html", docs.SwaggerUI)
		r.Get("/swagger-ui/swagger-initializer.js", docs.Initializer)
		r.Get("/swagger-ui/options", docs.Options)

		r.Get("/docs", docs.Index)
		r.Get("/docs/group/{group}", docs.GroupRedirect)
		r.Get("/docs/group/{group}/swagger.html", docs.GroupRedirect)
		r.Get("/docs/{name}", docs.SingleRedirect)
		r.Get("/docs/{name}/swagger.html", docs.SingleRedirect)

		r.Get("/swagger-config/single/{name}", docs.SingleConfig)
		r.Get("/swagger-config/group/{group}", docs.GroupConfig)
		r.Get("/external-specs/{name}", specs.External)

		if deps.Document != nil {
			apiDocs := handlers.NewAPIDocsHandler(deps.Document)
			r.Get(apiDocsPath, apiDocs.Spec)
			r.Handle(apiDocsUIPath+"*", swgui.New(cfg.UI.Title, apiDocsPath, apiDocsUIPath))
		}
	})

	if cfg.Relay.Enabled && deps.Relay != nil {
		r.Route(cfg.Relay.Prefix, func(r chi.Router) {
			if cfg.Relay.AuthToken != "" {
				r.Use(middleware.BearerAuth(cfg.Relay.AuthToken))
			}
			if cfg.RateLimit.Enabled && deps.Redis != nil {
				limiter := middleware.NewRateLimiter(deps.Redis, cfg.RateLimit.RequestsPerMinute, time.Minute)
				if cfg.Relay.AuthToken != "" {
					// All callers share the gateway token.
					limiter.PerAddress()
				}
				r.Use(limiter.Middleware())
			}
			r.Handle("/", deps.Relay)
			r.Handle("/*", deps.Relay)
		})
	}

	return r
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}
