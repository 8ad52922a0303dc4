package httpserver

import (
	"net/http"

	"github.com/yndnr/snapmesh-go/internal/core/service"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/snapmesh-go/internal/storage/archive"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
	"github.com/yndnr/snapmesh-go/internal/telemetry/metric"
)

// RouterConfig holds the wiring for the admin API router.
type RouterConfig struct {
	// Service handles snapshot operations.
	Service *service.SnapshotService

	// Archive serves snapshot history; nil disables those routes.
	Archive *archive.Archive

	// Metrics serves the /metrics endpoint; nil disables it.
	Metrics *metric.Metrics

	// Logger for request logging.
	Logger logger.Logger

	// RateLimit is the per-IP request rate; 0 disables limiting.
	RateLimit int

	// EnableAccessLog emits one log line per request.
	EnableAccessLog bool
}

// DefaultRouterConfig returns the default router settings.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimit:       100,
		EnableAccessLog: true,
	}
}

// NewRouter assembles the admin API with its middleware chain.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	h := handler.New(cfg.Service, cfg.Archive, log)

	apiMiddlewares := []Middleware{
		RequestID(),
		Recover(log),
	}
	if cfg.EnableAccessLog {
		apiMiddlewares = append(apiMiddlewares, AccessLog(log))
	}
	if cfg.RateLimit > 0 {
		apiMiddlewares = append(apiMiddlewares, RateLimit(cfg.RateLimit))
	}
	apiHandler := Chain(h, apiMiddlewares...)

	// Probes skip rate limiting so orchestration checks never starve.
	probeHandler := Chain(h, RequestID(), Recover(log))

	mux := http.NewServeMux()

	mux.Handle("GET /health", probeHandler)
	mux.Handle("GET /ready", probeHandler)
	mux.Handle("GET /version", probeHandler)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(log)))
	}

	mux.Handle("POST /v1/snapshots", apiHandler)
	mux.Handle("GET /v1/snapshots", apiHandler)
	mux.Handle("GET /v1/snapshots/{id}", apiHandler)
	mux.Handle("GET /v1/processes", apiHandler)
	mux.Handle("GET /v1/archive", apiHandler)
	mux.Handle("GET /v1/archive/{id}", apiHandler)

	return mux
}
