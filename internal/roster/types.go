// Package roster provides the patient directory consulted when a consultation starts.
// It stores read-only patient profiles and the sample roster used for demos.
package roster

import (
	"context"
	"io"
	"time"

	"github.com/consult-assist-server/internal/domain"
)

// Store is a writable patient directory.
type Store interface {
	domain.PatientDirectory

	// Save stores or replaces a patient profile.
	Save(ctx context.Context, profile *domain.PatientProfile) error

	// Delete removes a patient by ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of patients.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes the whole roster to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads patients from a JSON reader.
	// Patients whose ID already exists are skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// ConditionLister is implemented by directories that can filter patients by condition natively.
type ConditionLister interface {
	ListByCondition(ctx context.Context, condition string) ([]*domain.PatientProfile, error)
}

// ListByCondition returns the patients of a directory diagnosed with a condition,
// filtering the full listing when the directory has no native query.
func ListByCondition(ctx context.Context, directory domain.PatientDirectory, condition string) ([]*domain.PatientProfile, error) {
	if lister, ok := directory.(ConditionLister); ok {
		return lister.ListByCondition(ctx, condition)
	}

	patients, err := directory.ListPatients(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.PatientProfile, 0, len(patients))
	for _, p := range patients {
		if p != nil && p.HasCondition(condition) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// RosterExport represents the JSON export format.
type RosterExport struct {
	Version    string                   `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Patients   []*domain.PatientProfile `json:"patients"`
}

// RiskCounts is the number of patients per risk level.
type RiskCounts struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// RiskSummary counts patients per risk level. Unknown levels only count towards Total.
func RiskSummary(profiles []*domain.PatientProfile) RiskCounts {
	var counts RiskCounts
	for _, p := range profiles {
		if p == nil {
			continue
		}
		counts.Total++
		switch p.RiskLevel {
		case domain.RISK_HIGH:
			counts.High++
		case domain.RISK_MEDIUM:
			counts.Medium++
		case domain.RISK_LOW:
			counts.Low++
		}
	}
	return counts
}
