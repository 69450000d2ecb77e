package config

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the directory holding local data files.
const DataDirEnv = "CONSULT_ASSIST_DATA_DIR"

// DefaultDataDir returns the directory for local data such as the SQLite roster.
// It honours DataDirEnv and falls back to ~/.consult-assist, or ./data without a home directory.
func DefaultDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "data"
	}
	return filepath.Join(home, ".consult-assist")
}

// DefaultRosterPath returns the default SQLite roster location.
func DefaultRosterPath() string {
	return filepath.Join(DefaultDataDir(), "roster.db")
}

// ExportDir returns the directory roster exports are written to.
func ExportDir(dataDir string) string {
	return filepath.Join(dataDir, "exports")
}

// EnsureDataDir creates the data and export directories if they don't exist.
func EnsureDataDir(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(ExportDir(dataDir), 0755)
}
