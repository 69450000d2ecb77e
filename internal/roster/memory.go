package roster

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/consult-assist-server/internal/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	order    []string
	patients map[string]*domain.PatientProfile
}

// NewMemoryStore creates a store holding the given profiles.
func NewMemoryStore(profiles ...*domain.PatientProfile) *MemoryStore {
	s := &MemoryStore{patients: make(map[string]*domain.PatientProfile)}
	for _, p := range profiles {
		if p != nil && p.ID != "" {
			s.put(p)
		}
	}
	return s
}

func (s *MemoryStore) put(p *domain.PatientProfile) {
	if _, exists := s.patients[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.patients[p.ID] = p
}

// Save stores or replaces a patient profile.
func (s *MemoryStore) Save(ctx context.Context, profile *domain.PatientProfile) error {
	if profile == nil || profile.ID == "" {
		return domain.NewValidationError("id", "patient id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(profile)
	return nil
}

// GetPatient retrieves a patient by ID.
func (s *MemoryStore) GetPatient(ctx context.Context, id string) (*domain.PatientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
	}
	return p, nil
}

// ListPatients returns all patients in insertion order.
func (s *MemoryStore) ListPatients(ctx context.Context) ([]*domain.PatientProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PatientProfile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.patients[id])
	}
	return out, nil
}

// Count returns the number of patients.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.patients)), nil
}

// Delete removes a patient by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[id]; !ok {
		return fmt.Errorf("patient %s: %w", id, domain.ErrPatientNotFound)
	}
	delete(s.patients, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ExportJSON exports all patients to a JSON writer.
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.ListPatients(ctx)
	if err != nil {
		return err
	}
	return WriteExport(writer, all)
}

// ImportJSON imports patients from a JSON reader, skipping IDs that already exist.
func (s *MemoryStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return ImportInto(ctx, s, reader)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
