package domain

import (
	"time"
)

// Well-known condition names the suggestion rules are keyed on.
const (
	CONDITION_TYPE2_DIABETES = "Type 2 Diabetes"
	CONDITION_HYPERTENSION   = "Hypertension"
)

// ConversationTurn is one line of the transcript. Turns are immutable once created.
type ConversationTurn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PriorVisit is an entry of a patient's visit history.
type PriorVisit struct {
	Date       string `json:"date"`
	Complaints string `json:"complaints"`
	Diagnosis  string `json:"diagnosis"`
}

// PatientProfile is the read-only patient input to the suggestion engine.
type PatientProfile struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Age             int               `json:"age"`
	RiskLevel       RiskLevel         `json:"risk_level"`
	Conditions      []string          `json:"conditions"`
	Vitals          map[string]string `json:"vitals,omitempty"`
	PriorVisits     []PriorVisit      `json:"prior_visits,omitempty"`
	LastVisit       string            `json:"last_visit,omitempty"`
	AppointmentTime string            `json:"appointment_time,omitempty"`
}

// HasCondition reports whether the profile lists the condition. Matching is exact.
func (p *PatientProfile) HasCondition(condition string) bool {
	if p == nil {
		return false
	}
	for _, c := range p.Conditions {
		if c == condition {
			return true
		}
	}
	return false
}

// Suggestion is a clinical prompt for the doctor. It is regenerated on every evaluation pass.
type Suggestion struct {
	Priority Priority `json:"priority"`
	Question string   `json:"question"`
	Reason   string   `json:"reason"`
	Category string   `json:"category"`
	RuleCode string   `json:"rule_code,omitempty"`
}

// RecommendedAction is a follow-up action listed in the consultation summary.
type RecommendedAction struct {
	Action  string `json:"action" yaml:"action"`
	Urgency string `json:"urgency" yaml:"urgency"`
	Reason  string `json:"reason" yaml:"reason"`
}

// ClinicalPathway is a candidate care pathway with its actions.
type ClinicalPathway struct {
	Pathway string   `json:"pathway" yaml:"pathway"`
	Actions []string `json:"actions" yaml:"actions"`
}

// ConsultationSummary is produced once per end-of-visit request and never changes afterwards.
type ConsultationSummary struct {
	ConsultationID      string              `json:"consultation_id"`
	PatientID           string              `json:"patient_id"`
	DiscussedTopics     []TopicTag          `json:"discussed_topics"`
	MissedCriticalAreas []string            `json:"missed_critical_areas"`
	KeyFindings         []string            `json:"key_findings"`
	RecommendedActions  []RecommendedAction `json:"recommended_actions"`
	ClinicalPathways    []ClinicalPathway   `json:"clinical_pathways"`
	TurnCount           int                 `json:"turn_count"`
	GeneratedAt         time.Time           `json:"generated_at"`
}
