package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voltlead/voltlead/internal/app"
	"github.com/voltlead/voltlead/internal/auth"
	"github.com/voltlead/voltlead/internal/billing"
	billinghttp "github.com/voltlead/voltlead/internal/billing/http"
	"github.com/voltlead/voltlead/internal/catalog"
	"github.com/voltlead/voltlead/internal/deals"
	"github.com/voltlead/voltlead/internal/leads"
	"github.com/voltlead/voltlead/internal/partners"
	"github.com/voltlead/voltlead/internal/platform/cache"
	"github.com/voltlead/voltlead/internal/platform/db"
	"github.com/voltlead/voltlead/internal/settings"
	"github.com/voltlead/voltlead/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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
	settingsHandler := settings.NewHandler(logger, settingsStore)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(logger, authRepo, redisClient, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	defaults, err := settingsStore.BillingDefaults(ctx)
	if err != nil {
		logger.Warn("load billing defaults, using standard", slog.Any("error", err))
		defaults = billing.StandardDefaults()
	}
	billingRepo := billing.NewRepository(pool)
	billingService := billing.NewService(logger, billingRepo, billing.NewEngine(defaults))
	billingHandler := billinghttp.NewHandler(logger, billingService)

	leadsRepo := leads.NewRepository(pool)
	leadsService := leads.NewService(logger, leadsRepo)
	leadsHandler := leads.NewHandler(logger, leadsService)

	partnersRepo := partners.NewRepository(pool)
	partnersService := partners.NewService(logger, partnersRepo, settingsStore)
	partnersHandler := partners.NewHandler(logger, partnersService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(logger, catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	dealsRepo := deals.NewRepository(pool)
	dealsService := deals.NewService(logger, dealsRepo, billingService)
	dealsHandler := deals.NewHandler(logger, dealsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthService:     authService,
		AuthHandler:     authHandler,
		LeadsHandler:    leadsHandler,
		PartnersHandler: partnersHandler,
		CatalogHandler:  catalogHandler,
		DealsHandler:    dealsHandler,
		BillingHandler:  billingHandler,
		SettingsHandler: settingsHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
