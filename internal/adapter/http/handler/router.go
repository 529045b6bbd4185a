package handler

import (
	"venue-wallet-engine/internal/adapter/http/middleware"
	"venue-wallet-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Processor      ports.TransactionProcessor
	LedgerRepo     ports.LedgerRepository
	HealthCheckers []ports.HealthChecker
	Gatherer       prometheus.Gatherer // nil = default registry
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := r.Group("/api/v1")

	txHandler := NewTransactionHandler(deps.Processor)
	v1.POST("/entries", txHandler.ProcessEntry)
	v1.POST("/purchases", txHandler.ProcessPurchase)

	walletHandler := NewWalletHandler(deps.Processor, deps.LedgerRepo)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("/fund", walletHandler.Fund)
		wallets.GET("/:id/balance", walletHandler.GetBalance)
		wallets.GET("/:id/ledger", walletHandler.GetLedger)
	}

	return r
}
