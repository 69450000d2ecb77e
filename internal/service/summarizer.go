package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/content"
	"github.com/consult-assist-server/internal/domain"
)

// SummaryInput is the consultation state a summary is built from.
type SummaryInput struct {
	ConsultationID string
	PatientID      string
	Ledger         *TopicLedger
	// Suggestions is the live ranked list at the time the visit ends.
	Suggestions []domain.Suggestion
	Content     *content.ClinicalContent
	TurnCount   int
}

// Summarizer builds end-of-visit summaries.
type Summarizer struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewSummarizer creates a new summarizer
func NewSummarizer(logger *logrus.Logger) *Summarizer {
	return &Summarizer{
		logger: logger,
		now:    time.Now,
	}
}

// Summarize returns a fresh summary. Missed critical areas are the categories of the
// high-priority suggestions still on the live list, in list order.
func (s *Summarizer) Summarize(in SummaryInput) *domain.ConsultationSummary {
	missed := make([]string, 0)
	for _, suggestion := range in.Suggestions {
		if suggestion.Priority == domain.HIGH {
			missed = append(missed, suggestion.Category)
		}
	}

	static := in.Content.Clone()

	summary := &domain.ConsultationSummary{
		ConsultationID:      in.ConsultationID,
		PatientID:           in.PatientID,
		DiscussedTopics:     in.Ledger.Topics(),
		MissedCriticalAreas: missed,
		KeyFindings:         static.KeyFindings,
		RecommendedActions:  static.RecommendedActions,
		ClinicalPathways:    static.ClinicalPathways,
		TurnCount:           in.TurnCount,
		GeneratedAt:         s.now().UTC(),
	}

	s.logger.WithFields(logrus.Fields{
		"consultation_id": in.ConsultationID,
		"patient_id":      in.PatientID,
		"discussed":       len(summary.DiscussedTopics),
		"missed":          len(missed),
	}).Info("Generated consultation summary")

	return summary
}
