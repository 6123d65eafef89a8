package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voltlead/voltlead/internal/app"
	"github.com/voltlead/voltlead/internal/billing"
	"github.com/voltlead/voltlead/internal/partners"
	"github.com/voltlead/voltlead/internal/platform/cache"
	"github.com/voltlead/voltlead/internal/platform/db"
	"github.com/voltlead/voltlead/internal/settings"
	"github.com/voltlead/voltlead/jobs"
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

	settingsStore := settings.NewStore(redisClient)

	defaults, err := settingsStore.BillingDefaults(ctx)
	if err != nil {
		logger.Warn("load billing defaults, using standard", slog.Any("error", err))
		defaults = billing.StandardDefaults()
	}
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(logger, billingRepo, billing.NewEngine(defaults))

	partnersRepo := partners.NewRepository(pool)
	partnersService := partners.NewService(logger, partnersRepo, settingsStore)

	tasks := jobs.NewTasks(logger, billingService, partnersService)

	snapshotTask, err := jobs.NewInvoiceSnapshotTask(time.Time{})
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}
	quotaTask, err := jobs.NewQuotaScanTask(time.Now())
	if err != nil {
		logger.Error("build quota task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  tasks.Handlers(),
		Cron: []jobs.CronRegistration{
			// First of the month, after midnight: freeze last month's totals.
			{Spec: "30 2 1 * *", Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: quotaTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
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
