/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crew scheduling server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment variables
  2. Build the logger
  3. Resolve the application timezone (UTC fallback on bad config)
  4. Initialize SQLite store
  5. Create API handler with dependencies
  6. Start server with graceful shutdown

ENVIRONMENT:
  PORT                  HTTP server port (default: 8080)
  DB_PATH               SQLite database path (default: ./data/crew.db)
  APP_TIMEZONE          IANA zone for local date boundaries (default: UTC)
  WORKLOAD_PARTIAL_MIN  bookings at which a day is "partial" (default: 1)
  WORKLOAD_FULL_MIN     bookings at which a day is "full" (default: 3)
  BACK_TO_BACK_MINUTES  turnaround gap flagged as back-to-back (default: 15)
  ROLLOVER_INTERVAL_MINUTES  background rollover cadence, 0 disables (default: 60)
  LOG_LEVEL, LOG_JSON, CORS_ORIGINS

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/crew-engine/api"
	"github.com/warp/crew-engine/config"
	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// An unknown zone warns and schedules in UTC rather than crashing.
	clock := engine.NewClock(cfg.Timezone, logger)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	thresholds := engine.WorkloadThresholds{
		PartialMin: cfg.WorkloadPartialMin,
		FullMin:    cfg.WorkloadFullMin,
	}
	handler := api.NewHandler(store, clock, logger, thresholds, cfg.BackToBackMinutes)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	if cfg.RolloverIntervalMinutes > 0 {
		scheduler := api.NewRolloverScheduler(store, clock, logger)
		scheduler.CheckInterval = time.Duration(cfg.RolloverIntervalMinutes) * time.Minute
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("timezone", clock.Location().String()),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
