/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the learning center server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Build the zap logger from LOG_* environment variables
  3. Open the SQLite store and run migrations
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: center.db)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT  See pkg/logger.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/center.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NorpulatovDev/CreativeLearningCenter/api"
	"github.com/NorpulatovDev/CreativeLearningCenter/pkg/logger"
	"github.com/NorpulatovDev/CreativeLearningCenter/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "center.db", "SQLite database path")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	zl, err := logger.New(logger.FromEnv(), "learning-center")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Initialize store, running embedded migrations
	store, err := sqlite.New(*dbPath)
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, zl)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server stopped")
}
