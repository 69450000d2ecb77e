package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/consult-assist-server/internal/api"
	"github.com/consult-assist-server/internal/bootstrap"
	"github.com/consult-assist-server/internal/config"
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
	logger, err := bootstrap.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble application")
	}
	defer app.Close()

	var opts []api.ServerOption
	for name, check := range app.HealthChecks {
		opts = append(opts, api.WithHealthCheck(name, api.HealthCheck(check)))
	}

	server, err := api.NewServer(configManager, logger, app.Consultations, app.Directory, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create HTTP server")
	}

	logger.WithField("environment", cfg.Environment).Infof("Starting consultation assistant on %s:%d", cfg.Server.Host, cfg.Server.Port)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}

	logger.Info("Server stopped")
}
