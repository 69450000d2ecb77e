package roster

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/consult-assist-server/internal/domain"
)

// SQLStore implements Store using SQLite.
type SQLStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite patient store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPatient scans a row into a PatientProfile.
func scanPatient(s scanner) (*domain.PatientProfile, error) {
	p := &domain.PatientProfile{}
	var risk, conditions, vitals, visits string

	err := s.Scan(
		&p.ID, &p.Name, &p.Age, &risk,
		&conditions, &vitals, &visits,
		&p.LastVisit, &p.AppointmentTime,
	)
	if err != nil {
		return nil, err
	}

	p.RiskLevel = domain.RiskLevel(risk)
	if err := json.Unmarshal([]byte(conditions), &p.Conditions); err != nil {
		return nil, fmt.Errorf("decoding conditions of patient %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(vitals), &p.Vitals); err != nil {
		return nil, fmt.Errorf("decoding vitals of patient %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(visits), &p.PriorVisits); err != nil {
		return nil, fmt.Errorf("decoding prior visits of patient %s: %w", p.ID, err)
	}
	return p, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL DEFAULT 'low',
		conditions TEXT NOT NULL DEFAULT '[]',
		vitals TEXT NOT NULL DEFAULT '{}',
		prior_visits TEXT NOT NULL DEFAULT '[]',
		last_visit TEXT DEFAULT '',
		appointment_time TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_patients_risk_level ON patients(risk_level);
	`

	_, err := db.Exec(schema)
	return err
}

// encodeJSONColumns renders the collection fields of a profile as JSON column values.
func encodeJSONColumns(p *domain.PatientProfile) (conditions, vitals, visits string, err error) {
	cond := p.Conditions
	if cond == nil {
		cond = []string{}
	}
	vit := p.Vitals
	if vit == nil {
		vit = map[string]string{}
	}
	vis := p.PriorVisits
	if vis == nil {
		vis = []domain.PriorVisit{}
	}

	c, err := json.Marshal(cond)
	if err != nil {
		return "", "", "", err
	}
	v, err := json.Marshal(vit)
	if err != nil {
		return "", "", "", err
	}
	pv, err := json.Marshal(vis)
	if err != nil {
		return "", "", "", err
	}
	return string(c), string(v), string(pv), nil
}

// Save stores or replaces a patient profile.
func (s *SQLStore) Save(ctx context.Context, profile *domain.PatientProfile) error {
	if profile == nil || profile.ID == "" {
		return domain.NewValidationError("id", "patient id is required", nil)
	}

	conditions, vitals, visits, err := encodeJSONColumns(profile)
	if err != nil {
		return fmt.Errorf("failed to encode patient %s: %w", profile.ID, err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, name, age, risk_level, conditions, vitals, prior_visits,
			last_visit, appointment_time, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			risk_level = excluded.risk_level,
			conditions = excluded.conditions,
			vitals = excluded.vitals,
			prior_visits = excluded.prior_visits,
			last_visit = excluded.last_visit,
			appointment_time = excluded.appointment_time,
			updated_at = excluded.updated_at
	`,
		profile.ID,
		profile.Name,
		profile.Age,
		string(profile.RiskLevel),
		conditions,
		vitals,
		visits,
		profile.LastVisit,
		profile.AppointmentTime,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save patient %s: %w", profile.ID, err)
	}
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *SQLStore) GetPatient(ctx context.Context, id string) (*domain.PatientProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, age, risk_level, conditions, vitals, prior_visits,
			last_visit, appointment_time
		FROM patients
		WHERE id = ?
	`, id)

	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return p, nil
}

// ListPatients returns all patients in insertion order.
func (s *SQLStore) ListPatients(ctx context.Context) ([]*domain.PatientProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, age, risk_level, conditions, vitals, prior_visits,
			last_visit, appointment_time
		FROM patients
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.PatientProfile, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Count returns the number of patients.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients").Scan(&count)
	return count, err
}

// Delete removes a patient by ID.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM patients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete patient %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete patient %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
	}
	return nil
}

// ExportJSON exports all patients to a JSON writer.
func (s *SQLStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.ListPatients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list patients: %w", err)
	}
	return WriteExport(writer, all)
}

// ImportJSON imports patients from a JSON reader, skipping IDs that already exist.
func (s *SQLStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return ImportInto(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// WriteExport encodes patients in the roster export format.
func WriteExport(writer io.Writer, patients []*domain.PatientProfile) error {
	export := &RosterExport{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(patients),
		Patients:   patients,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportInto decodes a roster export and saves every patient the store does not hold yet.
func ImportInto(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export RosterExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, p := range export.Patients {
		_, err := store.GetPatient(ctx, p.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrPatientNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := store.Save(ctx, p); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
