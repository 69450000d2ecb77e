// Package bootstrap assembles the consultation service and its collaborators from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/archive"
	"github.com/consult-assist-server/internal/content"
	"github.com/consult-assist-server/internal/database"
	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/repository"
	"github.com/consult-assist-server/internal/roster"
	"github.com/consult-assist-server/internal/service"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// App holds the assembled components. Close releases them in reverse order of creation.
type App struct {
	Logger        *logrus.Logger
	Store         roster.Store
	Directory     domain.PatientDirectory
	Archive       domain.SummaryArchive
	Consultations *service.ConsultationService
	HealthChecks  map[string]HealthCheck

	closers []func() error
}

// NewLogger builds a logger from the logging settings. Output is "stdout", "stderr" or a file path.
func NewLogger(cfg domain.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}
	logger.SetOutput(out)

	return logger, nil
}

// New assembles the application. On error everything created so far is released.
func New(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger) (*App, error) {
	cfg := configManager.GetConfig()
	app := &App{
		Logger:       logger,
		HealthChecks: make(map[string]HealthCheck),
	}

	if err := app.openRoster(ctx, configManager); err != nil {
		app.Close()
		return nil, err
	}

	if err := app.openArchive(ctx, cfg.Cache); err != nil {
		app.Close()
		return nil, err
	}

	clinical, err := content.Load(cfg.Engine.ContentFile)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load clinical content: %w", err)
	}

	consultations, err := service.NewConsultationService(logger, app.Directory,
		service.WithArchive(app.Archive),
		service.WithContent(clinical),
		service.WithMaxSuggestions(cfg.Engine.MaxSuggestions),
		service.WithProcessingDelay(cfg.Engine.ProcessingDelay),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to create consultation service: %w", err)
	}
	app.Consultations = consultations

	logger.WithFields(logrus.Fields{
		"roster_backend":  cfg.Roster.Backend,
		"archive":         archiveKind(cfg.Cache),
		"max_suggestions": cfg.Engine.MaxSuggestions,
	}).Info("Application assembled")

	return app, nil
}

// OpenStore opens the configured roster backend and seeds it when empty.
func OpenStore(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger) (roster.Store, []func() error, HealthCheck, error) {
	cfg := configManager.GetConfig()

	var (
		store   roster.Store
		closers []func() error
		health  HealthCheck
	)

	switch strings.ToLower(cfg.Roster.Backend) {
	case "memory":
		store = roster.NewMemoryStore()

	case "sqlite":
		sqlite, err := roster.NewSQLiteStore(cfg.Roster.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open SQLite roster: %w", err)
		}
		store = sqlite
		closers = append(closers, sqlite.Close)

	case "postgres":
		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to prepare migrations: %w", err)
		}
		migrateErr := runner.Up(ctx)
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
		if migrateErr != nil {
			return nil, nil, nil, fmt.Errorf("failed to migrate roster schema: %w", migrateErr)
		}

		db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to Postgres roster: %w", err)
		}
		store = repository.NewPatientRepository(db.Pool, logger)
		closers = append(closers, func() error { db.Close(); return nil })
		health = db.Health

	default:
		return nil, nil, nil, fmt.Errorf("unknown roster backend: %s", cfg.Roster.Backend)
	}

	if err := roster.Seed(ctx, store, cfg.Roster.SeedFile, logger); err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, nil, nil, err
	}

	return store, closers, health, nil
}

func (a *App) openRoster(ctx context.Context, configManager domain.ConfigManager) error {
	store, closers, health, err := OpenStore(ctx, configManager, a.Logger)
	if err != nil {
		return err
	}
	a.Store = store
	a.closers = append(a.closers, closers...)
	if health != nil {
		a.HealthChecks["roster"] = health
	}

	cfg := configManager.GetConfig().Roster
	if strings.EqualFold(cfg.Backend, "memory") {
		a.Directory = store
		return nil
	}

	cached, err := roster.NewCachedDirectory(store, roster.CachedDirectoryConfig{
		Size: cfg.CacheSize,
		TTL:  cfg.CacheTTL,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create roster cache: %w", err)
	}
	a.Directory = cached
	return nil
}

func (a *App) openArchive(ctx context.Context, cfg domain.CacheConfig) error {
	if !cfg.Enabled {
		a.Archive = archive.NewMemoryArchive(cfg.MemorySize, cfg.SummaryTTL)
		return nil
	}

	redisArchive, err := archive.NewRedisArchive(ctx, cfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open summary archive: %w", err)
	}
	a.Archive = redisArchive
	a.closers = append(a.closers, redisArchive.Close)
	a.HealthChecks["archive"] = redisArchive.Health
	return nil
}

// Close releases every opened resource and returns the first error.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("Failed to release resource")
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}

func archiveKind(cfg domain.CacheConfig) string {
	if cfg.Enabled {
		return "redis"
	}
	return "memory"
}
