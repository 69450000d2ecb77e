package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/consult-assist-server/internal/domain"
)

// ConsultationHandle identifies one consultation.
type ConsultationHandle struct {
	ID        string    `json:"consultation_id"`
	PatientID string    `json:"patient_id"`
	StartedAt time.Time `json:"started_at"`
}

// ConsultationSession owns the mutable state of one consultation: history, ledger and the live
// suggestion list. Only SubmitTurn mutates history and ledger.
type ConsultationSession struct {
	// passMu admits one evaluation pass at a time; later submissions queue behind it.
	passMu     sync.Mutex
	processing atomic.Bool

	mu          sync.RWMutex
	handle      ConsultationHandle
	profile     *domain.PatientProfile
	history     []domain.ConversationTurn
	ledger      *TopicLedger
	suggestions []domain.Suggestion
	updatedAt   time.Time
	endedAt     *time.Time
}

func newConsultationSession(handle ConsultationHandle, profile *domain.PatientProfile) *ConsultationSession {
	return &ConsultationSession{
		handle:      handle,
		profile:     profile,
		history:     make([]domain.ConversationTurn, 0),
		ledger:      NewTopicLedger(),
		suggestions: make([]domain.Suggestion, 0),
		updatedAt:   handle.StartedAt,
	}
}

// ConsultationSnapshot is a point-in-time copy of a session.
type ConsultationSnapshot struct {
	ConsultationID string                    `json:"consultation_id"`
	Patient        *domain.PatientProfile    `json:"patient"`
	History        []domain.ConversationTurn `json:"history"`
	Topics         []domain.TopicTag         `json:"topics"`
	Suggestions    []domain.Suggestion       `json:"suggestions"`
	TurnCount      int                       `json:"turn_count"`
	Processing     bool                      `json:"processing"`
	StartedAt      time.Time                 `json:"started_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	EndedAt        *time.Time                `json:"ended_at,omitempty"`
}

// TurnResult is what one submitted turn produces.
type TurnResult struct {
	ConsultationID string                    `json:"consultation_id"`
	History        []domain.ConversationTurn `json:"history"`
	Topics         []domain.TopicTag         `json:"topics"`
	NewTopics      []domain.TopicTag         `json:"new_topics"`
	Suggestions    []domain.Suggestion       `json:"suggestions"`
	TurnCount      int                       `json:"turn_count"`
}

func (s *ConsultationSession) snapshot() *ConsultationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &ConsultationSnapshot{
		ConsultationID: s.handle.ID,
		Patient:        s.profile,
		History:        append([]domain.ConversationTurn{}, s.history...),
		Topics:         s.ledger.Topics(),
		Suggestions:    append([]domain.Suggestion{}, s.suggestions...),
		TurnCount:      len(s.history),
		Processing:     s.processing.Load(),
		StartedAt:      s.handle.StartedAt,
		UpdatedAt:      s.updatedAt,
	}
	if s.endedAt != nil {
		ended := *s.endedAt
		snap.EndedAt = &ended
	}
	return snap
}

// commit replaces the session state with the outcome of a completed pass.
func (s *ConsultationSession) commit(history []domain.ConversationTurn, ledger *TopicLedger, suggestions []domain.Suggestion, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = history
	s.ledger = ledger
	s.suggestions = suggestions
	s.updatedAt = at
}

func (s *ConsultationSession) markEnded(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endedAt = &at
	s.updatedAt = at
}

// beginPass blocks until no other pass is in flight. The returned func ends the pass.
func (s *ConsultationSession) beginPass() func() {
	s.passMu.Lock()
	s.processing.Store(true)
	return func() {
		s.processing.Store(false)
		s.passMu.Unlock()
	}
}
