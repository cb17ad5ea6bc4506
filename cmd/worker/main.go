package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/bootstrap"
	"github.com/kirillkom/legal-sla-monitor/internal/config"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-sla-monitor/internal/observability/logging"
	"github.com/kirillkom/legal-sla-monitor/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogFormat, "worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger: logger,
		ResilienceHooks: resilience.Hooks{
			OnRetry:       workerMetrics.RecordRetry,
			OnStateChange: workerMetrics.RecordBreakerState,
		},
		LagObserver: workerMetrics,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRunSubmitted(ctx, func(handlerCtx context.Context, runID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.RunProcessTimeout())
		defer cancel()

		workerMetrics.StartRun()
		started := time.Now()
		result, err := app.ProcessUC.Process(processCtx, runID)
		workerMetrics.FinishRun(time.Since(started), err)
		if err != nil {
			return err
		}
		workerMetrics.ObserveResult(result)
		logger.Info("run_processed",
			"run_id", runID,
			"records", result.Summary.TotalRecords,
			"errors", len(result.Errors),
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
