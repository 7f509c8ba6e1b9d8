package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/api"
	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/metrics"
	"kgraph-atlas/backend/pkg/config"
	"kgraph-atlas/backend/pkg/logger"
)

// sweepInterval is how often idle views are checked for expiry
const sweepInterval = time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph view server...")

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Initialize dependencies
	graphRepo := graph.NewRepository(driver, cfg.Neo4jDatabase)
	applied := graphRepo.EnsureSchema(ctx)
	log.Info("Graph schema checked", zap.Int("statements_applied", applied))

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, registry := newRouter(cfg, graphRepo, graphRepo)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Run(sweepCtx, sweepInterval)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("default_layout", cfg.DefaultLayoutMode),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newRouter builds the HTTP API from configuration and the data layer
func newRouter(cfg *config.Config, source graph.Source, editor graph.Editor) (*gin.Engine, *api.Registry) {
	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector("kgraph")
	}

	mode, err := layout.ParseMode(cfg.DefaultLayoutMode)
	if err != nil {
		mode = layout.ModeRing
	}

	registry := api.NewRegistry(cfg.ViewIdleTimeout, collector)
	router := api.NewRouter(api.Deps{
		Source:         source,
		Editor:         editor,
		Metrics:        collector,
		Registry:       registry,
		DefaultMode:    mode,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.Named("http"),
	})
	return router, registry
}
