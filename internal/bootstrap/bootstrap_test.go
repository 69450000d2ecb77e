package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/archive"
	"github.com/consult-assist-server/internal/config"
	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/roster"
)

func newConfig(t *testing.T, body string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	m, err := config.NewManagerFromFile(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	return m
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(domain.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	logger, err = NewLogger(domain.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = NewLogger(domain.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, err := NewLogger(domain.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNew_MemoryBackend(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := newConfig(t, "roster:\n  backend: memory\nengine:\n  max_suggestions: 2\n")

	app, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &archive.MemoryArchive{}, app.Archive)
	assert.Empty(t, app.HealthChecks)

	count, err := app.Store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	handle, err := app.Consultations.StartConsultation(context.Background(), "1")
	require.NoError(t, err)

	result, err := app.Consultations.SubmitTurn(context.Background(), handle.ID, domain.DOCTOR, "Good morning")
	require.NoError(t, err)
	assert.Len(t, result.Suggestions, 2)
}

func TestNew_SQLiteBackend(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dbPath := filepath.Join(t.TempDir(), "roster.db")
	cfg := newConfig(t, "roster:\n  backend: sqlite\n  sqlite_path: "+dbPath+"\n")

	app, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)

	assert.IsType(t, &roster.CachedDirectory{}, app.Directory)
	patient, err := app.Directory.GetPatient(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Rajesh Kumar", patient.Name)

	require.NoError(t, app.Close())

	// Reopening keeps the roster and does not seed twice
	app, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer app.Close()

	count, err := app.Store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestNew_SeedFile(t *testing.T) {
	logger, _ := test.NewNullLogger()

	var buf bytes.Buffer
	require.NoError(t, roster.WriteExport(&buf, roster.SamplePatients()[:2]))
	seedPath := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedPath, buf.Bytes(), 0644))

	cfg := newConfig(t, "roster:\n  backend: memory\n  seed_file: "+seedPath+"\n")

	app, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer app.Close()

	patients, err := app.Directory.ListPatients(context.Background())
	require.NoError(t, err)
	assert.Len(t, patients, 2)
}

func TestNew_Errors(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("Missing seed file", func(t *testing.T) {
		cfg := newConfig(t, "roster:\n  backend: memory\n  seed_file: /nonexistent/seed.json\n")
		_, err := New(context.Background(), cfg, logger)
		assert.Error(t, err)
	})

	t.Run("Missing content file", func(t *testing.T) {
		cfg := newConfig(t, "roster:\n  backend: memory\nengine:\n  content_file: /nonexistent/content.yaml\n")
		_, err := New(context.Background(), cfg, logger)
		assert.Error(t, err)
	})

	t.Run("Unreachable Redis", func(t *testing.T) {
		cfg := newConfig(t, "roster:\n  backend: memory\ncache:\n  enabled: true\n  redis_url: redis://127.0.0.1:1\n  max_retries: -1\n")
		_, err := New(context.Background(), cfg, logger)
		assert.Error(t, err)
	})
}
