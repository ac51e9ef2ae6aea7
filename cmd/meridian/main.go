package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/cashregisters"
	"github.com/meridian-erp/meridian-erp/internal/clients"
	"github.com/meridian-erp/meridian-erp/internal/companies"
	"github.com/meridian-erp/meridian-erp/internal/fx"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/projects"
	"github.com/meridian-erp/meridian-erp/internal/transactions"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, cache invalidation disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	ledgerMetrics := ledger.NewMetrics(metrics.Registerer())

	currencyRepo := fx.NewRepository(pool)
	converter := fx.NewConverter()
	clientRepo := clients.NewRepository(pool)
	companyRepo := companies.NewRepository(pool)
	rounding := companies.NewRoundingService(companyRepo)
	registerRepo := cashregisters.NewRepository(pool)
	orderResolver := projects.NewOrderResolver(pool)
	invalidator := cache.NewInvalidator(redisClient, logger)

	balanceRepo := ledger.NewRepository(pool)
	clientBalances := ledger.NewClientBalanceService(balanceRepo, currencyRepo, converter, rounding, logger, ledgerMetrics)
	balanceService := ledger.NewBalanceService(clientBalances, balanceRepo, clientRepo, currencyRepo, orderResolver, invalidator, logger, ledgerMetrics)
	ledgerHandler := ledger.NewHandler(logger, clientBalances, currencyRepo)

	txRepo := transactions.NewRepository(pool)
	txService := transactions.NewService(txRepo, balanceService, registerRepo, logger)
	txHandler := transactions.NewHandler(logger, txService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		LedgerHandler:       ledgerHandler,
		TransactionsHandler: txHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
