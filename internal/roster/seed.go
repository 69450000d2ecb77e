package roster

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
)

//go:embed sample_patients.json
var samplePatients []byte

// SamplePatients returns the built-in demo roster.
func SamplePatients() []*domain.PatientProfile {
	var export RosterExport
	if err := json.Unmarshal(samplePatients, &export); err != nil {
		panic(fmt.Sprintf("embedded sample roster is invalid: %v", err))
	}
	return export.Patients
}

// Seed imports a roster into an empty store. seedFile overrides the built-in sample roster.
// A store that already holds patients is left alone.
func Seed(ctx context.Context, store Store, seedFile string, logger *logrus.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count patients: %w", err)
	}
	if count > 0 {
		logger.WithField("patients", count).Debug("Roster already populated, skipping seed")
		return nil
	}

	data := samplePatients
	source := "embedded"
	if seedFile != "" {
		data, err = os.ReadFile(seedFile)
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		source = seedFile
	}

	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to seed roster: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"source":   source,
		"imported": imported,
		"skipped":  skipped,
	}).Info("Seeded patient roster")

	return nil
}
