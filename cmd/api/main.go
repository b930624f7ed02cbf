// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/database/redis"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/repository"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/handlers"
	"github.com/your-org/retail-pos-backend/internal/pkg/logger"
	"github.com/your-org/retail-pos-backend/internal/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)
	appLogger.Infof("Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	// Connect to database
	db, err := postgres.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Health check
	if err := db.Health(); err != nil {
		log.Fatalf("Database health check failed: %v", err)
	}
	if err := redisClient.Health(); err != nil {
		log.Fatalf("Redis health check failed: %v", err)
	}

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB())

	if err := migration.RunAutoMigrations(); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		appLogger.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			appLogger.WithError(err).Warn("Data seeding failed")
		}
		migration.GetTableInfo()
	}

	// Wire domain services
	datastore := repository.NewDatastore(db.GetDB())
	userStore := repository.NewUserStore(db.GetDB())

	ledger := inventory.NewLedger(datastore.Inventory(), appLogger, cfg.Inventory.ConflictRetries)
	inventoryService := inventory.NewService(datastore.Inventory(), ledger, appLogger)
	transfers := inventory.NewTransferCoordinator(datastore.Inventory(), ledger, appLogger, cfg.Inventory.ConflictRetries)
	loyaltyService := loyalty.NewService(datastore.Loyalty(), appLogger)
	pipeline := sales.NewPipeline(datastore.Sales(), ledger, loyaltyService, appLogger,
		cfg.Sales.DefaultTaxRate, cfg.Inventory.ConflictRetries)

	registry := metrics.NewRegistry()

	h := http.Handlers{
		Auth:      handlers.NewAuthHandler(userStore, cfg, appLogger),
		Inventory: handlers.NewInventoryHandler(inventoryService, ledger, transfers, redisClient, cfg, appLogger),
		Sales:     handlers.NewSalesHandler(pipeline, datastore.ProductStore(), cfg, appLogger),
		Loyalty:   handlers.NewLoyaltyHandler(loyaltyService, datastore.CustomerStore(), appLogger),
	}

	server := http.NewServer(cfg, db, redisClient, h, registry, appLogger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	appLogger.Info("Server shutdown completed")
}
