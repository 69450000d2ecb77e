// Package setup provides operator utilities for the consultation MCP server: registering it with an
// MCP client and moving the patient roster in and out of the data directory.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/consult-assist-server/internal/config"
)

// ServerName is the key the server is registered under in MCP client configs.
const ServerName = "consult-assist"

// ClientConfig represents the mcpServers section shared by desktop MCP clients.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// SetupOptions contains options for registering the server with a client.
type SetupOptions struct {
	ConfigPath    string // client config file to update
	BinaryPath    string // path to the MCP server binary
	DataDir       string // data directory holding the SQLite roster
	RosterBackend string // roster backend override, empty keeps the server default
}

// LoadClientConfig loads an MCP client configuration. A missing file yields an empty config.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]MCPServerConfig)
	}
	return &cfg, nil
}

// SaveClientConfig writes an MCP client configuration, creating its directory.
func SaveClientConfig(configPath string, cfg *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClient adds or replaces the consultation server entry in a client config.
// Other servers in the file are preserved.
func ConfigureClient(opts SetupOptions) (*MCPServerConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("client config path is required")
	}

	cfg, err := LoadClientConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		binaryPath, err = findBinary()
		if err != nil {
			return nil, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	server := MCPServerConfig{
		Command: binaryPath,
		Env: map[string]string{
			"ENVIRONMENT":                   "production",
			"CONSULT_ASSIST_LOGGING_OUTPUT": "stderr",
		},
	}
	if opts.DataDir != "" {
		server.Env[config.DataDirEnv] = opts.DataDir
		server.Env["CONSULT_ASSIST_ROSTER_SQLITE_PATH"] = filepath.Join(opts.DataDir, "roster.db")
	}
	if opts.RosterBackend != "" {
		server.Env["CONSULT_ASSIST_ROSTER_BACKEND"] = opts.RosterBackend
	}

	cfg.MCPServers[ServerName] = server
	if err := SaveClientConfig(opts.ConfigPath, cfg); err != nil {
		return nil, err
	}
	return &server, nil
}

// findBinary looks for the MCP server binary on PATH and in common build locations.
func findBinary() (string, error) {
	const binaryName = "mcp-server"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./bin/" + binaryName,
		"/usr/local/bin/" + binaryName,
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".local", "bin", binaryName))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status represents the current setup status.
type Status struct {
	ClientConfigPath string   `json:"client_config_path,omitempty"`
	ClientConfigured bool     `json:"client_configured"`
	ServerPath       string   `json:"server_path,omitempty"`
	DataDir          string   `json:"data_dir"`
	RosterBackend    string   `json:"roster_backend"`
	RosterPatients   int64    `json:"roster_patients"`
	Issues           []string `json:"issues"`
}

// ClientStatus inspects a client config for the consultation server entry and fills in the client fields.
func ClientStatus(status *Status, configPath string) {
	status.ClientConfigPath = configPath

	cfg, err := LoadClientConfig(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not load client config: %v", err))
		return
	}

	server, ok := cfg.MCPServers[ServerName]
	if !ok {
		return
	}
	status.ClientConfigured = true
	status.ServerPath = server.Command

	if _, err := os.Stat(server.Command); os.IsNotExist(err) {
		status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", server.Command))
	}
}
