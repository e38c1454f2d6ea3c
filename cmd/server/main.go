// Command server runs the billing calculator REST API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/em-billing-mcp-server/internal/api"
	"github.com/em-billing-mcp-server/internal/app"
	"github.com/em-billing-mcp-server/internal/config"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{DataDir: filepath.Dir(cfg.Progress.SQLitePath)})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	a.WatchCodeTable(ctx)

	server := api.NewServer(configManager, a.Calculator, a.Tracker, a.Sessions, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		a.Close()
		os.Exit(1)
	}
}
