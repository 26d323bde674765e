package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/madaris-app/madaris/internal/app"
	jobmetrics "github.com/madaris-app/madaris/internal/jobs"
	"github.com/madaris-app/madaris/internal/ledger"
	"github.com/madaris-app/madaris/internal/observability"
	"github.com/madaris-app/madaris/internal/platform/cache"
	"github.com/madaris-app/madaris/internal/platform/db"
	"github.com/madaris-app/madaris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	ledgerFeed := ledger.NewFeed(redisClient, logger)
	reportCache := ledger.NewReportCache(redisClient, 10*time.Minute)
	ledgerService := ledger.NewService(ledgerRepo, ledgerFeed, reportCache, observability.NewMetrics(), logger).
		WithDefaultCurrency(cfg.DefaultCurrency)

	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		SMTP: jobs.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		},
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeOverdueSweep, Handler: jobs.NewOverdueSweepHandler(ledgerService, metrics, logger)},
			{Type: jobs.TaskTypeReportWarmup, Handler: jobs.NewReportWarmupHandler(ledgerService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 0 * * *", Task: jobs.NewOverdueSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 5 * * *", Task: jobs.NewReportWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
