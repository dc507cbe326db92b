package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/openplag/internal/bootstrap"
	"github.com/kirillkom/openplag/internal/config"
	"github.com/kirillkom/openplag/internal/observability/logging"
	"github.com/kirillkom/openplag/internal/observability/metrics"
)

const serviceName = "openplag-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{CacheCounter: workerMetrics.EmbeddingCache()})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Events == nil {
		slog.Error("worker_requires_events", "error", errors.New("NATS_URL is empty"))
		os.Exit(1)
	}
	if cfg.RedisAddr == "" {
		slog.Warn("worker_without_cache", "detail", "REDIS_ADDR is empty; warmed vectors are not retained")
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", app.Events.Subject())
	err = app.Events.SubscribeEntryArchived(ctx, func(handlerCtx context.Context, entryID string) error {
		warmCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		start := time.Now()
		workerMetrics.StartEntry()
		err := app.WarmUC.WarmEntry(warmCtx, entryID)
		workerMetrics.FinishEntry(serviceName, time.Since(start), err)
		if err == nil {
			slog.Info("archive_entry_warmed", "entry_id", entryID, "duration_ms", time.Since(start).Milliseconds())
		}
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
