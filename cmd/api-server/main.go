package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/patient-appointment-agent/internal/api"
	"github.com/hackgods/patient-appointment-agent/internal/appointment"
	"github.com/hackgods/patient-appointment-agent/internal/audit"
	"github.com/hackgods/patient-appointment-agent/internal/config"
	"github.com/hackgods/patient-appointment-agent/internal/db"
	"github.com/hackgods/patient-appointment-agent/internal/delivery"
	"github.com/hackgods/patient-appointment-agent/internal/functions"
	"github.com/hackgods/patient-appointment-agent/internal/metrics"
	redisclient "github.com/hackgods/patient-appointment-agent/internal/redis"
	"github.com/hackgods/patient-appointment-agent/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("api-server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := appointment.NewRegistry()
	if cfg.SeedDemoPatients {
		n := appointment.SeedDemoPatients(registry)
		logger.Info("seeded demo patients", "count", n)
	}

	svc := appointment.NewService(registry, appointment.DemoAvailability{},
		appointment.WithLocation(cfg.Location),
		appointment.WithLogger(logger),
	)
	table, err := functions.NewTable(svc, cfg.EnabledFunctions)
	if err != nil {
		return err
	}
	logger.Info("functions published", "enabled", cfg.EnabledFunctions)

	agentMetrics := metrics.NewAgentMetrics(prometheus.DefaultRegisterer)
	agentMetrics.SetRegisteredPatients(registry.Len())

	routerCfg := api.RouterConfig{
		Table:   table,
		Logger:  logger,
		Env:     cfg.Env,
		Version: version,
	}
	dispatcherCfg := api.DispatcherConfig{
		Table:    table,
		Registry: registry,
		Metrics:  agentMetrics,
		Logger:   logger,
	}
	webhookCfg := api.WebhookConfig{
		Metrics: agentMetrics,
		Logger:  logger,
	}

	// Postgres backs the optional function call audit log
	if cfg.PostgresEnabled() {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		defer cancelPg()
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		logger.Info("connected to Postgres")

		callLog := audit.NewPgLog(pgPool)
		if err := callLog.EnsureSchema(pgCtx); err != nil {
			return err
		}
		routerCfg.PgPool = pgPool
		routerCfg.Calls = callLog
		dispatcherCfg.Calls = callLog
	}

	// Redis backs the optional webhook event de-duplication
	if cfg.RedisEnabled() {
		rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer closeRedis(rdb, logger)
		logger.Info("connected to Redis")

		routerCfg.Redis = rdb
		webhookCfg.Dedup = redisclient.NewRedisEventDeduper(rdb, cfg.EventDedupTTL)
	}

	deliverer := delivery.New(delivery.Config{
		Endpoint:       cfg.Messaging.Endpoint,
		APIVersion:     cfg.Messaging.APIVersion,
		ConversationID: cfg.Messaging.ConversationID,
		Recipient:      cfg.Messaging.Recipient,
		Timeout:        cfg.Messaging.Timeout,
		Logger:         logger,
	})
	if !deliverer.Configured() {
		logger.Warn("function result delivery disabled, set MESSAGING_ENDPOINT and MESSAGING_CONVERSATION_ID")
	}
	webhookCfg.Deliverer = deliverer

	dispatcher := api.NewDispatcher(dispatcherCfg)
	webhookCfg.Dispatcher = dispatcher
	routerCfg.Dispatcher = dispatcher
	routerCfg.Webhook = api.NewWebhookHandler(webhookCfg)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func closeRedis(rdb *redis.Client, logger *logging.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Error("error closing redis", "error", err)
	}
}
