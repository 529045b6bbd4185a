package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venue-wallet-engine/config"
	httpHandler "venue-wallet-engine/internal/adapter/http/handler"
	"venue-wallet-engine/internal/adapter/notification"
	pgStorage "venue-wallet-engine/internal/adapter/storage/postgres"
	redisStorage "venue-wallet-engine/internal/adapter/storage/redis"
	"venue-wallet-engine/internal/core/ports"
	"venue-wallet-engine/internal/service"
	"venue-wallet-engine/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Venue Wallet Engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	entryRepo := pgStorage.NewEntryRepo(pool)
	purchaseRepo := pgStorage.NewPurchaseRepo(pool)
	pricingRepo := pgStorage.NewPricingRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	fundingCache := redisStorage.NewFundingCache(rdb)

	// Metrics
	metrics := service.NewMetrics(prometheus.DefaultRegisterer)

	// Outbound notification sink
	var dispatcher ports.NotificationDispatcher
	if cfg.Notifier.URL != "" {
		dispatcher = notification.NewWebhookDispatcher(
			cfg.Notifier.URL,
			cfg.Notifier.Secret,
			&http.Client{Timeout: cfg.Notifier.Timeout},
			log,
		)
	} else {
		log.Warn().Msg("No notifier URL configured, events will be logged only")
		dispatcher = notification.NewLogDispatcher(log)
	}

	// Background workers
	eventQueue := service.NewEventQueue(dispatcher, cfg.Engine.EventQueueSize, metrics, log)
	eventQueue.Start(ctx)
	defer eventQueue.Close()

	repairWorker := service.NewRepairWorker(
		walletRepo, ledgerRepo, entryRepo, purchaseRepo,
		cfg.Engine.RepairQueueSize, metrics, log,
	)
	repairWorker.Start(ctx)
	defer repairWorker.Close()

	// Core transaction processor
	processor := service.NewProcessor(service.ProcessorDeps{
		WalletRepo:         walletRepo,
		LedgerRepo:         ledgerRepo,
		EntryRepo:          entryRepo,
		PurchaseRepo:       purchaseRepo,
		PricingRepo:        pricingRepo,
		FundingCache:       fundingCache,
		Transactor:         transactor,
		Events:             eventQueue,
		Repairs:            repairWorker,
		Metrics:            metrics,
		Logger:             log,
		MaxConflictRetries: cfg.Engine.MaxConflictRetries,
		FundingCacheTTL:    cfg.Engine.FundingCacheTTL,
	})

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Processor:      processor,
		LedgerRepo:     ledgerRepo,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
