package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ynabmetrics/internal/amqp"
	"ynabmetrics/internal/backend"
	"ynabmetrics/internal/cache"
	"ynabmetrics/internal/cli"
	"ynabmetrics/internal/core"
	apphttp "ynabmetrics/internal/http"
	"ynabmetrics/internal/log"
	"ynabmetrics/internal/metrics"
	"ynabmetrics/internal/telemetry"
	"ynabmetrics/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	recorder := telemetry.New()

	backendCfg, err := backend.FromAppConfig(cfg, recorder)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", log.FieldError, err, log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}

	store := cache.NewStore(cache.WithObserver(recorder))
	svc := metrics.NewService(result.Client, store, metrics.Settings{
		BudgetID:          cfg.YNABBudgetID,
		MonthlyCategories: cfg.MonthlyCategories,
		MonthlyIncome:     cfg.MonthlyIncome,
		SavingsAccounts:   cfg.SavingsAccounts,
		TTL:               cfg.CacheTTL,
	},
		metrics.WithLogger(logger),
		metrics.WithComputeObserver(recorder.Compute(func(err error) string { return string(core.KindOf(err)) })),
	)

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger),
		apphttp.WithMetricsHandler(recorder.Handler()),
		apphttp.WithHTTPObserver(recorder),
		apphttp.WithInvalidationObserver(recorder),
		apphttp.WithCacheClearLimit(cfg.CacheClearPerMinute),
	)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without cache invalidation", log.FieldError, err)
			amqpClient = nil
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	if amqpClient != nil {
		invalidations := worker.NewInvalidationWorker(svc, cfg.YNABBudgetID, recorder, logger)
		go func() {
			err := amqpClient.ConsumeLedgerChanged(ctx, invalidations.HandleLedgerChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting ynabmetrics server",
		"port", cfg.Port,
		log.FieldBackend, cfg.LedgerBackend,
		"cache_ttl", cfg.CacheTTL,
		"amqp_enabled", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
