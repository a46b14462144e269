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

	httpadapter "github.com/kirillkom/drive-filing-bot/internal/adapters/http"
	"github.com/kirillkom/drive-filing-bot/internal/bootstrap"
	"github.com/kirillkom/drive-filing-bot/internal/config"
	"github.com/kirillkom/drive-filing-bot/internal/observability/logging"
	"github.com/kirillkom/drive-filing-bot/internal/observability/metrics"
)

const serviceName = "filing-api"

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

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)

	router := httpadapter.NewRouter(
		app.SubmitUC,
		app.Collector,
		app.Corrections,
		app.ConfirmUC,
		app.Repo,
	).WithMetrics(serverMetrics, serviceName).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: serverMetrics.Handler(),
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
