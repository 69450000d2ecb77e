// Package archive holds summaries of just-ended consultations for a short time so a
// client can fetch them again after the end-of-visit call.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/consult-assist-server/internal/domain"
)

// MemoryArchive is a bounded in-process archive. The oldest summaries are evicted first.
type MemoryArchive struct {
	cache *expirable.LRU[string, *domain.ConsultationSummary]
}

// NewMemoryArchive creates an archive holding at most size summaries for ttl each.
// A zero ttl keeps summaries until they are evicted by size.
func NewMemoryArchive(size int, ttl time.Duration) *MemoryArchive {
	if size <= 0 {
		size = 128
	}
	return &MemoryArchive{
		cache: expirable.NewLRU[string, *domain.ConsultationSummary](size, nil, ttl),
	}
}

// Put stores a summary under its consultation ID, replacing any previous one.
func (a *MemoryArchive) Put(ctx context.Context, summary *domain.ConsultationSummary) error {
	if summary == nil || summary.ConsultationID == "" {
		return domain.NewValidationError("consultation_id", "summary must carry a consultation id", nil)
	}
	a.cache.Add(summary.ConsultationID, summary)
	return nil
}

// Get returns the summary of a consultation.
func (a *MemoryArchive) Get(ctx context.Context, consultationID string) (*domain.ConsultationSummary, error) {
	summary, ok := a.cache.Get(consultationID)
	if !ok {
		return nil, fmt.Errorf("summary %s: %w", consultationID, domain.ErrNotFound)
	}
	return summary, nil
}

// Len returns the number of held summaries.
func (a *MemoryArchive) Len() int {
	return a.cache.Len()
}
