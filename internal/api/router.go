package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/patient-appointment-agent/internal/functions"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

type RouterConfig struct {
	Table      *functions.Table
	Dispatcher *Dispatcher
	Webhook    *WebhookHandler
	Calls      CallLister
	PgPool     *pgxpool.Pool
	Redis      *redis.Client
	Gatherer   prometheus.Gatherer
	Logger     *logging.Logger
	Env        string
	Version    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	var pg, rd Pinger
	if cfg.PgPool != nil {
		pg = cfg.PgPool
	}
	if cfg.Redis != nil {
		rd = redisPinger{client: cfg.Redis}
	}
	health := NewHealthHandler(pg, rd, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Messaging platform webhook
	if cfg.Webhook != nil {
		r.Options("/api/updates", cfg.Webhook.Options)
		r.Post("/api/updates", cfg.Webhook.Post)
	}

	// Function endpoints
	r.Get("/functions", listFunctionsHandler(cfg.Table))
	r.Get("/functions/schema", functionSchemasHandler(cfg.Table))
	r.Get("/functions/calls", recentCallsHandler(cfg.Calls))
	r.Post("/functions/{name}/invoke", invokeFunctionHandler(cfg.Dispatcher))

	return r
}
