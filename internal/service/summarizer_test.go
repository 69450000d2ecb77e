package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/content"
	"github.com/consult-assist-server/internal/domain"
)

func TestSummarizer_Summarize(t *testing.T) {
	summarizer := NewSummarizer(newTestLogger(t))
	fixed := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	summarizer.now = func() time.Time { return fixed }

	t.Run("Missed_Critical_Areas", func(t *testing.T) {
		live := []domain.Suggestion{
			{Priority: domain.HIGH, Category: "Neuropathy Assessment", RuleCode: "DM-FOOT"},
			{Priority: domain.MEDIUM, Category: "Symptom Assessment", RuleCode: "DM-PU"},
			{Priority: domain.LOW, Category: "Lifestyle Factors", RuleCode: "DM-EX"},
		}

		summary := summarizer.Summarize(SummaryInput{
			ConsultationID: "c1",
			PatientID:      "1",
			Ledger:         NewTopicLedger(domain.TOPIC_SYMPTOMS, domain.TOPIC_GLUCOSE_MONITORING, domain.TOPIC_VISION),
			Suggestions:    live,
			Content:        content.Default(),
			TurnCount:      6,
		})

		require.NotNil(t, summary)
		assert.Equal(t, []string{"Neuropathy Assessment"}, summary.MissedCriticalAreas)
		assert.Equal(t, []domain.TopicTag{domain.TOPIC_SYMPTOMS, domain.TOPIC_GLUCOSE_MONITORING, domain.TOPIC_VISION}, summary.DiscussedTopics)
		assert.Equal(t, "c1", summary.ConsultationID)
		assert.Equal(t, 6, summary.TurnCount)
		assert.Equal(t, fixed, summary.GeneratedAt)
		assert.Len(t, summary.KeyFindings, 4)
		assert.Len(t, summary.RecommendedActions, 4)
		assert.Len(t, summary.ClinicalPathways, 2)
	})

	t.Run("Nothing_Missed", func(t *testing.T) {
		summary := summarizer.Summarize(SummaryInput{Ledger: NewTopicLedger(), Content: content.Default()})

		assert.NotNil(t, summary.MissedCriticalAreas)
		assert.Empty(t, summary.MissedCriticalAreas)
		assert.Empty(t, summary.DiscussedTopics)
	})

	t.Run("Fresh_Value_Per_Call", func(t *testing.T) {
		in := SummaryInput{Ledger: NewTopicLedger(domain.TOPIC_DIET), Content: content.Default()}

		first := summarizer.Summarize(in)
		first.KeyFindings[0] = "edited"
		first.DiscussedTopics[0] = domain.TOPIC_VISION

		second := summarizer.Summarize(in)
		assert.NotEqual(t, "edited", second.KeyFindings[0])
		assert.Equal(t, domain.TOPIC_DIET, second.DiscussedTopics[0])
	})

	t.Run("Nil_Content", func(t *testing.T) {
		summary := summarizer.Summarize(SummaryInput{Ledger: NewTopicLedger()})
		assert.Empty(t, summary.KeyFindings)
	})
}
