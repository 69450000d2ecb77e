package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
)

// Markers whose presence in the transcript means the previous visit was already reviewed.
var followUpMarkers = []string{"last visit", "previous"}

// SuggestionRuleEngine evaluates condition-scoped, topic-gated rules against a consultation.
type SuggestionRuleEngine struct {
	logger     *logrus.Logger
	conditions []string
	rules      map[string][]*SuggestionRule
	universal  []*SuggestionRule
}

// SuggestionRule emits one suggestion when its topic is still uncovered and enough turns have passed.
// Rules with an empty Condition apply to every patient.
type SuggestionRule struct {
	Code         string          `json:"code"`
	Condition    string          `json:"condition,omitempty"`
	Topic        domain.TopicTag `json:"topic,omitempty"`
	MinTurnCount int             `json:"min_turn_count"`
	Priority     domain.Priority `json:"priority"`
	Question     string          `json:"question"`
	Reason       string          `json:"reason"`
	Category     string          `json:"category"`

	// Gate is an extra eligibility check evaluated after the topic and turn gates.
	Gate func(in EvaluationInput) bool `json:"-"`
}

// EvaluationInput is everything a single evaluation pass depends on.
type EvaluationInput struct {
	Profile   *domain.PatientProfile
	Ledger    *TopicLedger
	TurnCount int
	// Transcript is the normalized conversation text, see NormalizeTranscript.
	Transcript string
}

// NewSuggestionRuleEngine creates a new engine loaded with the clinical rule table
func NewSuggestionRuleEngine(logger *logrus.Logger) *SuggestionRuleEngine {
	engine := &SuggestionRuleEngine{
		logger: logger,
		rules:  make(map[string][]*SuggestionRule),
	}

	engine.initializeRules()

	return engine
}

// Evaluate runs every applicable rule and returns the suggestions in emission order.
// Output depends only on the input; repeated calls with equal input yield equal output.
func (e *SuggestionRuleEngine) Evaluate(in EvaluationInput) []domain.Suggestion {
	suggestions := make([]domain.Suggestion, 0)

	for _, condition := range e.conditions {
		if !in.Profile.HasCondition(condition) {
			continue
		}
		for _, rule := range e.rules[condition] {
			if rule.fires(in) {
				suggestions = append(suggestions, rule.suggestion())
			}
		}
	}

	for _, rule := range e.universal {
		if rule.fires(in) {
			suggestions = append(suggestions, rule.suggestion())
		}
	}

	fields := logrus.Fields{
		"turn_count":       in.TurnCount,
		"covered_topics":   in.Ledger.Len(),
		"suggestion_count": len(suggestions),
	}
	if in.Profile != nil {
		fields["patient_id"] = in.Profile.ID
	}
	e.logger.WithFields(fields).Debug("Evaluated suggestion rules")

	return suggestions
}

// Rules returns the rule table in evaluation order.
func (e *SuggestionRuleEngine) Rules() []SuggestionRule {
	var out []SuggestionRule
	for _, condition := range e.conditions {
		for _, rule := range e.rules[condition] {
			out = append(out, *rule)
		}
	}
	for _, rule := range e.universal {
		out = append(out, *rule)
	}
	return out
}

// Conditions returns the condition names that have rules, in evaluation order.
func (e *SuggestionRuleEngine) Conditions() []string {
	out := make([]string, len(e.conditions))
	copy(out, e.conditions)
	return out
}

func (r *SuggestionRule) fires(in EvaluationInput) bool {
	if r.Topic != "" && in.Ledger.Has(r.Topic) {
		return false
	}
	if in.TurnCount < r.MinTurnCount {
		return false
	}
	if r.Gate != nil && !r.Gate(in) {
		return false
	}
	return true
}

func (r *SuggestionRule) suggestion() domain.Suggestion {
	return domain.Suggestion{
		Priority: r.Priority,
		Question: r.Question,
		Reason:   r.Reason,
		Category: r.Category,
		RuleCode: r.Code,
	}
}

// initializeRules sets up the condition rule lists and the universal rules
func (e *SuggestionRuleEngine) initializeRules() {
	diabetes := domain.CONDITION_TYPE2_DIABETES

	e.addRule(&SuggestionRule{
		Code: "DM-GLU", Condition: diabetes, Topic: domain.TOPIC_GLUCOSE_MONITORING, Priority: domain.HIGH,
		Question: "Have you been monitoring your blood glucose levels at home? What are the typical readings?",
		Reason:   "Critical for diabetes management - previous visit showed uncontrolled levels (180 mg/dL)",
		Category: "Diabetes Monitoring",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-VIS", Condition: diabetes, Topic: domain.TOPIC_VISION, Priority: domain.HIGH,
		Question: "Have you noticed any changes in your vision, such as blurriness or difficulty seeing at night?",
		Reason:   "Diabetic retinopathy screening - essential for long-term diabetes patients",
		Category: "Complications Screening",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-FOOT", Condition: diabetes, Topic: domain.TOPIC_FOOT_CARE, Priority: domain.HIGH,
		Question: "Any numbness, tingling, or pain in your feet? Have you noticed any wounds or sores?",
		Reason:   "Patient mentioned feet tingling - possible diabetic neuropathy",
		Category: "Neuropathy Assessment",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-PU", Condition: diabetes, Topic: domain.TOPIC_POLYURIA, Priority: domain.MEDIUM,
		Question: "Are you experiencing increased thirst or more frequent urination than usual?",
		Reason:   "Classic symptoms of uncontrolled diabetes",
		Category: "Symptom Assessment",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-WND", Condition: diabetes, Topic: domain.TOPIC_WOUND_HEALING, Priority: domain.MEDIUM,
		Question: "Have you noticed any cuts or wounds that seem to be healing slower than normal?",
		Reason:   "Poor wound healing is an indicator of diabetes control",
		Category: "Complications Screening",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-DIET", Condition: diabetes, Topic: domain.TOPIC_DIET, MinTurnCount: 3, Priority: domain.MEDIUM,
		Question: "Walk me through what you typically eat in a day. Are you following the diabetic diet plan?",
		Reason:   "Diet is crucial for diabetes management",
		Category: "Lifestyle Factors",
	})
	e.addRule(&SuggestionRule{
		Code: "DM-EX", Condition: diabetes, Topic: domain.TOPIC_EXERCISE, MinTurnCount: 5, Priority: domain.LOW,
		Question: "How much physical activity are you getting each week?",
		Reason:   "Exercise improves insulin sensitivity",
		Category: "Lifestyle Factors",
	})

	hypertension := domain.CONDITION_HYPERTENSION

	e.addRule(&SuggestionRule{
		Code: "HTN-MED", Condition: hypertension, Topic: domain.TOPIC_MEDICATION, MinTurnCount: 3, Priority: domain.HIGH,
		Question: "Are you taking your blood pressure medications as prescribed? Any side effects?",
		Reason:   "BP reading today is 145/92 - slightly elevated",
		Category: "Medication Adherence",
	})
	e.addRule(&SuggestionRule{
		Code: "HTN-STR", Condition: hypertension, Topic: domain.TOPIC_MENTAL_HEALTH, Priority: domain.MEDIUM,
		Question: "How have your stress levels been? Any major life changes or concerns?",
		Reason:   "Stress can significantly impact blood pressure",
		Category: "Psychosocial Factors",
	})

	e.addRule(&SuggestionRule{
		Code: "GEN-FU", MinTurnCount: 4, Priority: domain.MEDIUM,
		Question: "Since your last visit, have the symptoms we discussed then improved, stayed the same, or worsened?",
		Reason:   "Follow-up on previous visit concerns (uncontrolled diabetes)",
		Category: "Follow-up",
		Gate:     previousVisitNotMentioned,
	})

	e.logger.WithFields(logrus.Fields{
		"condition_count": len(e.conditions),
		"rule_count":      len(e.Rules()),
	}).Info("Initialized suggestion rules")
}

// addRule registers a rule, keeping condition and rule order stable
func (e *SuggestionRuleEngine) addRule(rule *SuggestionRule) {
	if rule.Condition == "" {
		e.universal = append(e.universal, rule)
		return
	}
	if _, exists := e.rules[rule.Condition]; !exists {
		e.conditions = append(e.conditions, rule.Condition)
	}
	e.rules[rule.Condition] = append(e.rules[rule.Condition], rule)
}

// previousVisitNotMentioned is a literal text search; its outcome never enters the ledger.
func previousVisitNotMentioned(in EvaluationInput) bool {
	for _, marker := range followUpMarkers {
		if strings.Contains(in.Transcript, marker) {
			return false
		}
	}
	return true
}
