package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/roster"
)

const patientColumns = `id, name, age, risk_level, conditions, vitals, prior_visits, last_visit, appointment_time`

// PatientRepository handles patient roster persistence in Postgres
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

func scanPatient(row pgx.Row) (*domain.PatientProfile, error) {
	var p domain.PatientProfile
	var risk string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Age,
		&risk,
		&p.Conditions,
		&p.Vitals,
		&p.PriorVisits,
		&p.LastVisit,
		&p.AppointmentTime,
	)
	if err != nil {
		return nil, err
	}
	p.RiskLevel = domain.RiskLevel(risk)
	return &p, nil
}

// Save upserts a patient profile
func (r *PatientRepository) Save(ctx context.Context, profile *domain.PatientProfile) error {
	if profile == nil || profile.ID == "" {
		return domain.NewValidationError("id", "patient id is required", nil)
	}

	conditions := profile.Conditions
	if conditions == nil {
		conditions = []string{}
	}
	vitals := profile.Vitals
	if vitals == nil {
		vitals = map[string]string{}
	}
	visits := profile.PriorVisits
	if visits == nil {
		visits = []domain.PriorVisit{}
	}

	query := `
		INSERT INTO patients (` + patientColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			risk_level = EXCLUDED.risk_level,
			conditions = EXCLUDED.conditions,
			vitals = EXCLUDED.vitals,
			prior_visits = EXCLUDED.prior_visits,
			last_visit = EXCLUDED.last_visit,
			appointment_time = EXCLUDED.appointment_time,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		profile.ID,
		profile.Name,
		profile.Age,
		string(profile.RiskLevel),
		conditions,
		vitals,
		visits,
		profile.LastVisit,
		profile.AppointmentTime,
		time.Now(),
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": profile.ID,
			"error":      err,
		}).Error("Failed to save patient")
		return fmt.Errorf("saving patient: %w", err)
	}

	r.log.WithField("patient_id", profile.ID).Debug("Patient saved")
	return nil
}

// GetPatient retrieves a patient by ID
func (r *PatientRepository) GetPatient(ctx context.Context, id string) (*domain.PatientProfile, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	p, err := scanPatient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": id,
			"error":      err,
		}).Error("Failed to get patient")
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	return p, nil
}

// ListPatients returns every patient, oldest first
func (r *PatientRepository) ListPatients(ctx context.Context) ([]*domain.PatientProfile, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	defer rows.Close()

	patients := make([]*domain.PatientProfile, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patients: %w", err)
	}
	return patients, nil
}

// ListByCondition returns the patients diagnosed with a condition
func (r *PatientRepository) ListByCondition(ctx context.Context, condition string) ([]*domain.PatientProfile, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE conditions ? $1 ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, condition)
	if err != nil {
		return nil, fmt.Errorf("listing patients by condition: %w", err)
	}
	defer rows.Close()

	patients := make([]*domain.PatientProfile, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// Count returns the number of patients
func (r *PatientRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting patients: %w", err)
	}
	return count, nil
}

// Delete removes a patient by ID
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
	}

	r.log.WithField("patient_id", id).Info("Patient deleted")
	return nil
}

// ExportJSON writes the whole roster in the roster export format
func (r *PatientRepository) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := r.ListPatients(ctx)
	if err != nil {
		return err
	}
	return roster.WriteExport(writer, all)
}

// ImportJSON loads a roster export, skipping existing IDs
func (r *PatientRepository) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return roster.ImportInto(ctx, r, reader)
}

// Close is a no-op; the pool belongs to the caller.
func (r *PatientRepository) Close() error {
	return nil
}
