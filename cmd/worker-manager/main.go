// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"story-workers/internal/app"
	"story-workers/internal/common/camunda"
	"story-workers/internal/common/config"
	"story-workers/internal/common/database"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/observability"
	"story-workers/internal/common/validation"
	"story-workers/internal/storage/pending"
	"story-workers/pkg/registry"

	em "story-workers/internal/workers/generation/extract-modules"
	gs "story-workers/internal/workers/generation/generate-stories"
	gtc "story-workers/internal/workers/generation/generate-test-cases"
	rb "story-workers/internal/workers/generation/review-batch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid worker configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("provider", cfg.GenAI.Provider),
		zap.String("model", cfg.GenAI.Model),
		zap.String("storage", cfg.Storage.Backend),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Redis (pending batches) ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Approved stores ---
	var stores *app.Stores
	err = retryWithBackoff(func() error {
		var err error
		stores, err = app.OpenStores(ctx, cfg, log)
		return err
	}, 15, 2*time.Second, zapLog, "Storage initialization")
	if err != nil {
		zapLog.Fatal("storage failed after retries", zap.Error(err))
	}
	defer stores.Close()

	// --- Generation ---
	orchestrator, err := app.NewOrchestrator(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Fatal("generation client init failed", zap.Error(err))
	}

	validator, err := validation.NewValidator(registry.Default())
	if err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}

	pendingStore := pending.NewStore(redis.Client, cfg.Storage.PendingTTLDuration(), log)
	approvalService := app.NewApproval(stores, pendingStore, log)

	// --- Workers ---
	workers := camunda.NewWorkerSet(zeebe.GetClient(), log)

	emCfg := em.ConfigFromApp(cfg)
	gsCfg := gs.ConfigFromApp(cfg)
	gtcCfg := gtc.ConfigFromApp(cfg)
	rbCfg := rb.ConfigFromApp(cfg)
	for name, c := range map[string]interface{ Validate() error }{
		em.TaskType: emCfg, gs.TaskType: gsCfg, gtc.TaskType: gtcCfg, rb.TaskType: rbCfg,
	} {
		if err := c.Validate(); err != nil {
			zapLog.Fatal("invalid worker configuration", zap.String("taskType", name), zap.Error(err))
		}
	}

	workers.Start(em.TaskType, config.GetWorkerConfig(cfg, em.TaskType), em.NewHandler(em.HandlerOptions{
		Config:       emCfg,
		Orchestrator: orchestrator,
		Validator:    validator,
		Obs:          obs,
		Logger:       log,
	}))
	workers.Start(gs.TaskType, config.GetWorkerConfig(cfg, gs.TaskType), gs.NewHandler(gs.HandlerOptions{
		Config:       gsCfg,
		Orchestrator: orchestrator,
		Approved:     stores.Approved,
		Pending:      pendingStore,
		Validator:    validator,
		Obs:          obs,
		Logger:       log,
	}))
	workers.Start(gtc.TaskType, config.GetWorkerConfig(cfg, gtc.TaskType), gtc.NewHandler(gtc.HandlerOptions{
		Config:       gtcCfg,
		Orchestrator: orchestrator,
		Approved:     stores.Approved,
		Pending:      pendingStore,
		Validator:    validator,
		Obs:          obs,
		Logger:       log,
	}))
	workers.Start(rb.TaskType, config.GetWorkerConfig(cfg, rb.TaskType), rb.NewHandler(rb.HandlerOptions{
		Config:    rbCfg,
		Approval:  approvalService,
		Validator: validator,
		Obs:       obs,
		Logger:    log,
	}))
	zapLog.Info("workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"zeebe": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redis.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
