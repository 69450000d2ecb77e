package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/bootstrap"
	"github.com/consult-assist-server/internal/config"
	"github.com/consult-assist-server/internal/domain"
)

// CLI provides command-line interface for setup operations.
type CLI struct {
	out           io.Writer
	configManager domain.ConfigManager
	logger        *logrus.Logger
	now           func() time.Time
}

// NewCLI creates a new setup CLI instance writing to out.
func NewCLI(out io.Writer, configManager domain.ConfigManager, logger *logrus.Logger) *CLI {
	return &CLI{
		out:           out,
		configManager: configManager,
		logger:        logger,
		now:           time.Now,
	}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "client":
		return c.setupClient(args[1:])
	case "status":
		return c.showStatus(ctx, args[1:])
	case "export":
		return c.exportRoster(ctx, args[1:])
	case "import":
		return c.importRoster(ctx, args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n\n", args[0])
		_ = c.showHelp()
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) showHelp() error {
	fmt.Fprint(c.out, `
Consultation Assistant MCP Server Setup

Usage:
  mcp-server setup <command> [options]

Commands:
  client --config <file> [--binary <path>] [--data-dir <dir>] [--backend <name>]
                  Register the server in an MCP client config file
  status [--config <file>]
                  Show data directory, roster and client registration
  export [file]   Write the patient roster as JSON (default: <data dir>/exports)
  import <file>   Add patients from a roster export, skipping existing IDs
`)
	return nil
}

func (c *CLI) setupClient(args []string) error {
	opts := SetupOptions{}
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return fmt.Errorf("missing value for %s", args[i])
		}
		switch args[i] {
		case "--config", "-c":
			opts.ConfigPath = args[i+1]
		case "--binary", "-b":
			opts.BinaryPath = args[i+1]
		case "--data-dir", "-d":
			opts.DataDir = args[i+1]
		case "--backend":
			opts.RosterBackend = args[i+1]
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
		i++
	}

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	server, err := ConfigureClient(opts)
	if err != nil {
		return fmt.Errorf("failed to configure client: %w", err)
	}

	fmt.Fprintf(c.out, "Registered %q in %s\n", ServerName, opts.ConfigPath)
	fmt.Fprintf(c.out, "  command: %s\n", server.Command)
	return nil
}

func (c *CLI) showStatus(ctx context.Context, args []string) error {
	cfg := c.configManager.GetConfig()
	status := &Status{
		DataDir:       config.DefaultDataDir(),
		RosterBackend: cfg.Roster.Backend,
		Issues:        []string{},
	}

	if len(args) == 2 && (args[0] == "--config" || args[0] == "-c") {
		ClientStatus(status, args[1])
	}

	if _, err := os.Stat(status.DataDir); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Data directory will be created on first run: %s", status.DataDir))
	}

	store, closers, _, err := bootstrap.OpenStore(ctx, c.configManager, c.logger)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not open roster: %v", err))
	} else {
		defer closeAll(closers)
		count, err := store.Count(ctx)
		if err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Could not count patients: %v", err))
		}
		status.RosterPatients = count
	}

	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(status)
}

func (c *CLI) exportRoster(ctx context.Context, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		dataDir := config.DefaultDataDir()
		if err := config.EnsureDataDir(dataDir); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		path = filepath.Join(config.ExportDir(dataDir), fmt.Sprintf("roster-%s.json", c.now().UTC().Format("20060102-150405")))
	}

	store, closers, _, err := bootstrap.OpenStore(ctx, c.configManager, c.logger)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := store.ExportJSON(ctx, f); err != nil {
		return fmt.Errorf("failed to export roster: %w", err)
	}

	fmt.Fprintf(c.out, "Exported roster to %s\n", path)
	return nil
}

func (c *CLI) importRoster(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import needs exactly one file")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	store, closers, _, err := bootstrap.OpenStore(ctx, c.configManager, c.logger)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	imported, skipped, err := store.ImportJSON(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to import roster: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"file":     args[0],
		"imported": imported,
		"skipped":  skipped,
	}).Info("Imported patient roster")
	fmt.Fprintf(c.out, "Imported %d patients, skipped %d existing\n", imported, skipped)
	return nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}
