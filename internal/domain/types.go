// Package domain contains the core entities of the consultation assistant: conversation turns,
// clinical topic tags, patient profiles, suggestions and the end-of-visit summary.
//
// The rule set these types feed is illustrative and is not a vetted clinical knowledge base.
package domain

import (
	"fmt"
	"strings"
)

// Speaker identifies who said a conversation turn.
type Speaker string

const (
	DOCTOR  Speaker = "Doctor"
	PATIENT Speaker = "Patient"
)

// IsValid reports whether the speaker is one of the two consultation participants.
func (s Speaker) IsValid() bool {
	switch s {
	case DOCTOR, PATIENT:
		return true
	default:
		return false
	}
}

// String returns the string representation of the speaker.
func (s Speaker) String() string {
	return string(s)
}

// ParseSpeaker parses a speaker name case-insensitively.
func ParseSpeaker(value string) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "doctor":
		return DOCTOR, nil
	case "patient":
		return PATIENT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSpeaker, value)
	}
}

// TopicTag is a clinical subject the engine tracks as discussed or not.
// New tags need a matching keyword rule in the topic detector.
type TopicTag string

const (
	TOPIC_MEDICATION         TopicTag = "medication"
	TOPIC_DIET               TopicTag = "diet"
	TOPIC_EXERCISE           TopicTag = "exercise"
	TOPIC_GLUCOSE_MONITORING TopicTag = "glucose_monitoring"
	TOPIC_VISION             TopicTag = "vision"
	TOPIC_FOOT_CARE          TopicTag = "foot_care"
	TOPIC_SYMPTOMS           TopicTag = "symptoms"
	TOPIC_POLYURIA           TopicTag = "polyuria"
	TOPIC_WOUND_HEALING      TopicTag = "wound_healing"
	TOPIC_MENTAL_HEALTH      TopicTag = "mental_health"
)

// AllTopics returns every known topic tag in canonical order.
func AllTopics() []TopicTag {
	return []TopicTag{
		TOPIC_MEDICATION,
		TOPIC_DIET,
		TOPIC_EXERCISE,
		TOPIC_GLUCOSE_MONITORING,
		TOPIC_VISION,
		TOPIC_FOOT_CARE,
		TOPIC_SYMPTOMS,
		TOPIC_POLYURIA,
		TOPIC_WOUND_HEALING,
		TOPIC_MENTAL_HEALTH,
	}
}

// IsValid reports whether the tag is a known topic.
func (t TopicTag) IsValid() bool {
	for _, known := range AllTopics() {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the topic tag.
func (t TopicTag) String() string {
	return string(t)
}

// DisplayName returns the tag with underscores replaced by spaces, e.g. "glucose monitoring".
func (t TopicTag) DisplayName() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// Priority is the ordinal tier used to sort and cap suggestions.
type Priority string

const (
	HIGH   Priority = "high"
	MEDIUM Priority = "medium"
	LOW    Priority = "low"
)

// IsValid reports whether the priority is a known tier.
func (p Priority) IsValid() bool {
	switch p {
	case HIGH, MEDIUM, LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// Rank returns the sort position of the priority: high < medium < low.
// Unknown priorities sort after every known tier.
func (p Priority) Rank() int {
	switch p {
	case HIGH:
		return 0
	case MEDIUM:
		return 1
	case LOW:
		return 2
	default:
		return 3
	}
}

// RiskLevel is the roster-assigned risk of a patient.
type RiskLevel string

const (
	RISK_LOW    RiskLevel = "low"
	RISK_MEDIUM RiskLevel = "medium"
	RISK_HIGH   RiskLevel = "high"
)

// IsValid reports whether the risk level is known.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RISK_LOW, RISK_MEDIUM, RISK_HIGH:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}
