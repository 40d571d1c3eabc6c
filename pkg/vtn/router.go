package vtn

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/vtn/handler"
	"github.com/dmitrymomot/vtn/pkg/httpserver"
	"github.com/dmitrymomot/vtn/pkg/jwt"
	"github.com/dmitrymomot/vtn/pkg/logger"
	"github.com/dmitrymomot/vtn/pkg/notifier"
)

// RouterConfig holds what the HTTP surface is built from.
type RouterConfig struct {
	Notifier *notifier.Notifier
	Tokens   *jwt.Service
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer // nil disables /metrics
}

// NewRouter mounts the notifier endpoints, health probes and metrics.
//
//	GET /notifiers            capability document
//	GET /notifiers/websocket  notifier channel (access token required)
//	GET /health/live
//	GET /health/ready
//	GET /metrics
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.NotFound(problemHandler(handler.ErrNotFound))
	r.MethodNotAllowed(problemHandler(handler.ErrMethodNotAllowed))

	r.Route("/notifiers", func(r chi.Router) {
		r.Get("/", cfg.Notifier.CapabilitiesHandler())
		r.With(authMiddleware(cfg.Tokens, log)).Get("/websocket", cfg.Notifier.UpgradeHandler())
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", httpserver.HealthCheckHandler(log))
		r.Get("/ready", httpserver.HealthCheckHandler(log, cfg.Notifier.Ready))
	})

	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{
			ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelError),
		}))
	}
	return r
}

func problemHandler(e handler.HTTPError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = handler.Problem(e, "").Render(w, r)
	}
}

// RequestIDExtractor adds chi's request ID to records logged with a
// request context.
func RequestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return logger.RequestID(id), true
}
