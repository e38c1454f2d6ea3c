// Command mcp-server exposes the billing calculators to MCP clients over stdio.
// Configuration comes from EMCALC_* environment variables. With
// EMCALC_TRANSPORT=http it serves the REST API instead.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/em-billing-mcp-server/internal/api"
	"github.com/em-billing-mcp-server/internal/app"
	"github.com/em-billing-mcp-server/internal/config"
	"github.com/em-billing-mcp-server/internal/mcp"
)

func main() {
	lite := config.LoadLiteConfig()
	if err := lite.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	manager := lite.Manager()
	if err := manager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := manager.GetConfig()

	// stdout carries the protocol, so logs always go to stderr.
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.WithField("data_dir", lite.DataDir).Info("Loaded configuration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveHTTP := strings.EqualFold(lite.Transport, "http")

	a, err := app.New(ctx, cfg, logger, app.Options{DataDir: lite.DataDir, SkipProgress: !serveHTTP})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	a.WatchCodeTable(ctx)

	if serveHTTP {
		err = api.NewServer(manager, a.Calculator, a.Tracker, a.Sessions, logger).Start(ctx)
	} else {
		var server *mcp.Server
		server, err = mcp.NewServer(cfg.MCP, a.Calculator, logger)
		if err == nil {
			err = server.Run(ctx)
		}
	}
	if err != nil {
		logger.WithError(err).Error("Server failed")
		a.Close()
		os.Exit(1)
	}
}
