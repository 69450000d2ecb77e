package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/consult-assist-server/internal/bootstrap"
	"github.com/consult-assist-server/internal/config"
	"github.com/consult-assist-server/internal/mcp"
	"github.com/consult-assist-server/internal/setup"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// stdout carries the MCP protocol
	logging := configManager.GetConfig().Logging
	if logging.Output == "" || logging.Output == "stdout" {
		logging.Output = "stderr"
	}
	logger, err := bootstrap.NewLogger(logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(os.Stdout, configManager, logger)
		if err := cli.Run(ctx, os.Args[2:]); err != nil {
			logger.WithError(err).Fatal("Setup failed")
		}
		return
	}

	if err := config.EnsureDataDir(config.DefaultDataDir()); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	app, err := bootstrap.New(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble application")
	}
	defer app.Close()

	server, err := mcp.NewServer(configManager, logger, app.Consultations, app.Directory)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server stopped with error")
		return
	}

	logger.Info("Consultation MCP server stopped")
}
