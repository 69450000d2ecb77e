package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/domain"
)

func testSummary(id string) *domain.ConsultationSummary {
	return &domain.ConsultationSummary{
		ConsultationID:      id,
		PatientID:           "1",
		DiscussedTopics:     []domain.TopicTag{domain.TOPIC_SYMPTOMS, domain.TOPIC_DIET},
		MissedCriticalAreas: []string{"Neuropathy Assessment"},
		KeyFindings:         []string{"Current glucose levels remain elevated at 180 mg/dL"},
		RecommendedActions: []domain.RecommendedAction{
			{Action: "Schedule diabetic neuropathy assessment", Urgency: "Within 1 month", Reason: "Patient reporting peripheral tingling symptoms"},
		},
		ClinicalPathways: []domain.ClinicalPathway{
			{Pathway: "Suspected Diabetic Neuropathy", Actions: []string{"Monofilament test"}},
		},
		TurnCount:   4,
		GeneratedAt: time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive(2, 0)

	require.NoError(t, archive.Put(ctx, testSummary("c1")))
	got, err := archive.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, testSummary("c1"), got)

	_, err = archive.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Error(t, archive.Put(ctx, &domain.ConsultationSummary{}))
	assert.Error(t, archive.Put(ctx, nil))
}

func TestMemoryArchive_Bounded(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive(2, 0)

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, archive.Put(ctx, testSummary(id)))
	}

	assert.Equal(t, 2, archive.Len())
	_, err := archive.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = archive.Get(ctx, "c3")
	assert.NoError(t, err)
}

func TestMemoryArchive_Expiry(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive(4, 10*time.Millisecond)

	require.NoError(t, archive.Put(ctx, testSummary("c1")))

	assert.Eventually(t, func() bool {
		_, err := archive.Get(ctx, "c1")
		return err != nil
	}, time.Second, 5*time.Millisecond)
}
