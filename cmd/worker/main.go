package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planscale/takeoff-engine/internal/bootstrap"
	"github.com/planscale/takeoff-engine/internal/config"
	"github.com/planscale/takeoff-engine/internal/observability/logging"
	"github.com/planscale/takeoff-engine/internal/observability/metrics"
)

const serviceName = "takeoff-worker"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()

	runTimeout := time.Duration(cfg.RunTimeoutSeconds) * time.Second

	log.Printf("worker subscribed to %s", cfg.NATSRunSubject)
	err = app.Queue.SubscribeRunRequested(ctx, func(handlerCtx context.Context, sessionID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, runTimeout)
		defer cancel()

		workerMetrics.StartRun()
		start := time.Now()
		runErr := app.RunUC.RunByID(runCtx, sessionID)
		workerMetrics.FinishRun(serviceName, time.Since(start), runErr)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
