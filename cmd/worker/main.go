package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/drive-filing-bot/internal/bootstrap"
	"github.com/kirillkom/drive-filing-bot/internal/config"
	"github.com/kirillkom/drive-filing-bot/internal/observability/logging"
	"github.com/kirillkom/drive-filing-bot/internal/observability/metrics"
)

const serviceName = "filing-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app.UploadUC.WithMetrics(workerMetrics)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchReady(ctx, func(handlerCtx context.Context, batchID, ownerID string) error {
		slog.Info("batch received", "batch_id", batchID, "owner_id", ownerID)
		processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
		defer cancel()
		return app.ProcessUC.ProcessByID(processCtx, batchID)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
