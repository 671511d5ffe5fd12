// Package main provides the queue's worker service for processing
// background jobs.
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" // #nosec G108 - pprof is intentionally exposed for debugging, isolated to separate port
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muaviaUsmani/bullmq-core-go/internal/atomicqueue"
	"github.com/muaviaUsmani/bullmq-core-go/internal/config"
	"github.com/muaviaUsmani/bullmq-core-go/internal/keys"
	"github.com/muaviaUsmani/bullmq-core-go/internal/logger"
	"github.com/muaviaUsmani/bullmq-core-go/internal/metrics"
	"github.com/muaviaUsmani/bullmq-core-go/internal/result"
	"github.com/muaviaUsmani/bullmq-core-go/internal/scriptregistry"
	"github.com/muaviaUsmani/bullmq-core-go/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	workerCfg, err := config.LoadWorkerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load worker config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := log.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	logger.SetDefault(log)

	workerLog := log.WithComponent(logger.ComponentWorker).WithSource(logger.LogSourceInternal)

	workerLog.Info("Worker starting",
		"concurrency", workerCfg.Concurrency,
		"job_types", len(workerCfg.JobTypes),
		"job_timeout", cfg.JobTimeout,
		"queue_prefix", cfg.Prefix,
		"queue_name", cfg.QueueName,
		"redis_url", cfg.RedisURL)

	workerLog.Info("Worker configuration details", "config", workerCfg.String())

	pprofPort := os.Getenv("PPROF_PORT")
	if pprofPort == "" {
		pprofPort = "6061"
	}
	go func() {
		workerLog.Info("Starting pprof server", "port", pprofPort, "url", fmt.Sprintf("http://localhost:%s/debug/pprof/", pprofPort))
		server := &http.Server{
			Addr:              ":" + pprofPort,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			workerLog.Error("pprof server failed", "error", err)
		}
	}()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		workerLog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			workerLog.Error("Failed to close Redis client", "error", err)
		}
	}()

	registry := scriptregistry.New(redisClient)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := registry.LoadAll(loadCtx); err != nil {
		workerLog.Error("Failed to load scripts into Redis", "error", err)
		loadCancel()
		os.Exit(1)
	}
	loadCancel()

	keyModel := keys.NewModel(cfg.Prefix, cfg.QueueName)
	atomicQ := atomicqueue.New(registry, redisClient, keyModel)

	var resultBackend result.Backend
	if cfg.ResultBackendEnabled {
		resultBackend = result.NewRedisBackend(redisClient, cfg.ResultBackendTTLSuccess, cfg.ResultBackendTTLFailure)
		workerLog.Info("Result backend enabled",
			"success_ttl", cfg.ResultBackendTTLSuccess,
			"failure_ttl", cfg.ResultBackendTTLFailure)
	}

	handlerRegistry := worker.NewRegistry()

	// TODO: Replace example handlers with real job handlers
	handlerRegistry.Register("count_items", worker.HandleCountItems)
	handlerRegistry.Register("send_email", worker.HandleSendEmail)
	handlerRegistry.Register("process_data", worker.HandleProcessData)

	workerLog.Info("Registered job handlers", "count", handlerRegistry.Count())

	executor := worker.NewExecutor(handlerRegistry, atomicQ, workerCfg.Concurrency)
	executor.SetDefaultAttempts(int64(cfg.DefaultAttempts))

	if resultBackend != nil {
		executor.SetResultBackend(resultBackend)
	}

	pool := worker.NewPool(executor, atomicQ, workerCfg, cfg.JobTimeout)
	pool.SetLimiterMax(workerCfg.LimiterMax)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	pool.Start(ctx)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m := metrics.GetMetrics()
				workerLog.Info("System metrics",
					"jobs_processed", m.TotalJobsProcessed,
					"jobs_completed", m.TotalJobsCompleted,
					"jobs_failed", m.TotalJobsFailed,
					"avg_duration_ms", m.AvgJobDuration.Milliseconds(),
					"worker_utilization", fmt.Sprintf("%.1f%%", m.WorkerUtilization),
					"error_rate", fmt.Sprintf("%.2f%%", m.ErrorRate),
					"uptime", m.Uptime.String(),
				)
			}
		}
	}()

	sig := <-sigChan
	workerLog.Info("Received shutdown signal, initiating graceful shutdown", "signal", sig)

	cancel()
	pool.Stop()

	workerLog.Info("Worker shut down successfully")
}
