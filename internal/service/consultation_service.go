package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/content"
	"github.com/consult-assist-server/internal/domain"
)

// ConsultationService runs consultations: it owns the sessions and drives one evaluation
// pass per submitted turn.
type ConsultationService struct {
	logger     *logrus.Logger
	directory  domain.PatientDirectory
	archive    domain.SummaryArchive
	extractor  *TopicExtractor
	detector   domain.TopicDetector
	engine     *SuggestionRuleEngine
	ranker     *Ranker
	summarizer *Summarizer
	content    *content.ClinicalContent
	delay      time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*ConsultationSession
}

// ConsultationOption is a functional option for ConsultationService.
type ConsultationOption func(*ConsultationService) error

// WithTopicDetector replaces the keyword detector.
func WithTopicDetector(detector domain.TopicDetector) ConsultationOption {
	return func(s *ConsultationService) error {
		if detector == nil {
			return fmt.Errorf("topic detector is nil")
		}
		s.detector = detector
		return nil
	}
}

// WithArchive sets where summaries of ended consultations are handed off.
func WithArchive(archive domain.SummaryArchive) ConsultationOption {
	return func(s *ConsultationService) error {
		s.archive = archive
		return nil
	}
}

// WithProcessingDelay adds a pause to every pass before its result is committed.
func WithProcessingDelay(delay time.Duration) ConsultationOption {
	return func(s *ConsultationService) error {
		if delay < 0 {
			return fmt.Errorf("processing delay must not be negative: %s", delay)
		}
		s.delay = delay
		return nil
	}
}

// WithMaxSuggestions sets the display budget of the ranked list.
func WithMaxSuggestions(limit int) ConsultationOption {
	return func(s *ConsultationService) error {
		if limit < 1 {
			return fmt.Errorf("max suggestions must be at least 1: %d", limit)
		}
		s.ranker = NewRanker(limit)
		return nil
	}
}

// WithContent sets the static clinical content used in summaries.
func WithContent(c *content.ClinicalContent) ConsultationOption {
	return func(s *ConsultationService) error {
		if c == nil {
			return fmt.Errorf("clinical content is nil")
		}
		s.content = c
		return nil
	}
}

// NewConsultationService creates a new consultation service
func NewConsultationService(logger *logrus.Logger, directory domain.PatientDirectory, opts ...ConsultationOption) (*ConsultationService, error) {
	s := &ConsultationService{
		logger:     logger,
		directory:  directory,
		engine:     NewSuggestionRuleEngine(logger),
		ranker:     NewRanker(DefaultMaxSuggestions),
		summarizer: NewSummarizer(logger),
		now:        time.Now,
		sessions:   make(map[string]*ConsultationSession),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.content == nil {
		s.content = content.Default()
	}
	s.extractor = NewTopicExtractor(logger, s.detector)

	return s, nil
}

// StartConsultation opens a consultation for a patient from the directory.
func (s *ConsultationService) StartConsultation(ctx context.Context, patientID string) (*ConsultationHandle, error) {
	if s.directory == nil {
		return nil, fmt.Errorf("patient directory not configured: %w", domain.ErrPatientNotFound)
	}

	profile, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient %s: %w", patientID, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrPatientNotFound)
	}

	return s.StartConsultationFor(ctx, profile)
}

// StartConsultationFor opens a consultation with empty history and ledger for the given profile.
func (s *ConsultationService) StartConsultationFor(ctx context.Context, profile *domain.PatientProfile) (*ConsultationHandle, error) {
	if profile == nil {
		return nil, domain.ErrNoActivePatient
	}

	handle := ConsultationHandle{
		ID:        uuid.New().String(),
		PatientID: profile.ID,
		StartedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.sessions[handle.ID] = newConsultationSession(handle, profile)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"consultation_id": handle.ID,
		"patient_id":      profile.ID,
		"conditions":      profile.Conditions,
	}).Info("Started consultation")

	return &handle, nil
}

// SubmitTurn appends a turn and runs one evaluation pass over the whole history.
// On any error the session is left unchanged.
func (s *ConsultationService) SubmitTurn(ctx context.Context, consultationID string, speaker domain.Speaker, text string) (*TurnResult, error) {
	session, err := s.session(consultationID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	if !speaker.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSpeaker, speaker)
	}

	endPass := session.beginPass()
	defer endPass()

	session.mu.RLock()
	profile := session.profile
	history := make([]domain.ConversationTurn, len(session.history), len(session.history)+1)
	copy(history, session.history)
	ledger := session.ledger.Clone()
	session.mu.RUnlock()

	if profile == nil {
		return nil, domain.ErrNoActivePatient
	}

	history = append(history, domain.ConversationTurn{
		Speaker:   speaker,
		Text:      text,
		Timestamp: s.now().UTC(),
	})

	added := ledger.Merge(s.extractor.Extract(history))
	suggestions := s.ranker.Rank(s.engine.Evaluate(EvaluationInput{
		Profile:    profile,
		Ledger:     ledger,
		TurnCount:  len(history),
		Transcript: NormalizeTranscript(history),
	}))

	if err := s.wait(ctx); err != nil {
		return nil, fmt.Errorf("turn not applied: %w", err)
	}

	session.commit(history, ledger, suggestions, s.now().UTC())

	s.logger.WithFields(logrus.Fields{
		"consultation_id":  consultationID,
		"patient_id":       profile.ID,
		"turn_count":       len(history),
		"new_topics":       added,
		"suggestion_count": len(suggestions),
	}).Debug("Processed consultation turn")

	return &TurnResult{
		ConsultationID: consultationID,
		History:        append([]domain.ConversationTurn{}, history...),
		Topics:         ledger.Topics(),
		NewTopics:      append([]domain.TopicTag{}, added...),
		Suggestions:    append([]domain.Suggestion{}, suggestions...),
		TurnCount:      len(history),
	}, nil
}

// SelectSuggestion returns the question to prefill into the doctor's next turn.
func (s *ConsultationService) SelectSuggestion(suggestion domain.Suggestion) string {
	return suggestion.Question
}

// EndConsultation summarizes the current state of a consultation. Calling it again
// recomputes the summary from whatever the state is by then.
func (s *ConsultationService) EndConsultation(ctx context.Context, consultationID string) (*domain.ConsultationSummary, error) {
	session, err := s.session(consultationID)
	if err != nil {
		return nil, err
	}

	endPass := session.beginPass()
	defer endPass()

	if err := s.wait(ctx); err != nil {
		return nil, fmt.Errorf("consultation not ended: %w", err)
	}

	session.mu.RLock()
	profile := session.profile
	in := SummaryInput{
		ConsultationID: consultationID,
		Ledger:         session.ledger.Clone(),
		Suggestions:    append([]domain.Suggestion{}, session.suggestions...),
		Content:        s.content,
		TurnCount:      len(session.history),
	}
	session.mu.RUnlock()

	if profile == nil {
		return nil, domain.ErrNoActivePatient
	}
	in.PatientID = profile.ID

	summary := s.summarizer.Summarize(in)
	session.markEnded(summary.GeneratedAt)

	if s.archive != nil {
		if err := s.archive.Put(ctx, summary); err != nil {
			s.logger.WithError(err).WithField("consultation_id", consultationID).Warn("Failed to archive consultation summary")
		}
	}

	return summary, nil
}

// GetConsultation returns a snapshot of a consultation.
func (s *ConsultationService) GetConsultation(consultationID string) (*ConsultationSnapshot, error) {
	session, err := s.session(consultationID)
	if err != nil {
		return nil, err
	}
	return session.snapshot(), nil
}

// GetSummary returns the archived summary of an ended consultation.
func (s *ConsultationService) GetSummary(ctx context.Context, consultationID string) (*domain.ConsultationSummary, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("summary archive not configured: %w", domain.ErrNotFound)
	}
	summary, err := s.archive.Get(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary %s: %w", consultationID, err)
	}
	return summary, nil
}

// DiscardConsultation drops a consultation. Its handle stops working afterwards.
func (s *ConsultationService) DiscardConsultation(consultationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[consultationID]; !ok {
		return domain.ErrNoActivePatient
	}
	delete(s.sessions, consultationID)

	s.logger.WithField("consultation_id", consultationID).Info("Discarded consultation")
	return nil
}

// ActiveConsultations returns the number of open sessions.
func (s *ConsultationService) ActiveConsultations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Rules returns the suggestion rule table.
func (s *ConsultationService) Rules() []SuggestionRule {
	return s.engine.Rules()
}

func (s *ConsultationService) session(consultationID string) (*ConsultationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[consultationID]
	if !ok {
		return nil, fmt.Errorf("consultation %s: %w", consultationID, domain.ErrNoActivePatient)
	}
	return session, nil
}

// wait is the suspension point of a pass.
func (s *ConsultationService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
