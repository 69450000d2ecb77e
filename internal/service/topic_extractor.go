package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
)

// KeywordRule maps a topic tag to the substrings that signal it.
type KeywordRule struct {
	Topic    domain.TopicTag
	Triggers []string
}

// DefaultKeywordRules returns the curated trigger table, one rule per topic in canonical order.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Topic: domain.TOPIC_MEDICATION, Triggers: []string{"medication", "medicine"}},
		{Topic: domain.TOPIC_DIET, Triggers: []string{"diet", "food", "eating"}},
		{Topic: domain.TOPIC_EXERCISE, Triggers: []string{"exercise", "physical activity"}},
		{Topic: domain.TOPIC_GLUCOSE_MONITORING, Triggers: []string{"glucose", "blood sugar"}},
		{Topic: domain.TOPIC_VISION, Triggers: []string{"vision", "eyes", "see"}},
		{Topic: domain.TOPIC_FOOT_CARE, Triggers: []string{"foot", "feet", "toes"}},
		{Topic: domain.TOPIC_SYMPTOMS, Triggers: []string{"symptoms", "feeling"}},
		{Topic: domain.TOPIC_POLYURIA, Triggers: []string{"thirst", "urination", "bathroom"}},
		{Topic: domain.TOPIC_WOUND_HEALING, Triggers: []string{"wound", "cut", "heal"}},
		{Topic: domain.TOPIC_MENTAL_HEALTH, Triggers: []string{"stress", "anxiety"}},
	}
}

// KeywordTopicDetector detects topics by plain substring membership, so "see" also matches "seen".
type KeywordTopicDetector struct {
	rules []KeywordRule
}

// NewKeywordTopicDetector creates a detector over the given rules, or the default table when none are given.
func NewKeywordTopicDetector(rules ...KeywordRule) *KeywordTopicDetector {
	if len(rules) == 0 {
		rules = DefaultKeywordRules()
	}
	return &KeywordTopicDetector{rules: rules}
}

// Detect returns every topic with at least one trigger present in the transcript.
func (d *KeywordTopicDetector) Detect(normalizedTranscript string) []domain.TopicTag {
	var topics []domain.TopicTag
	for _, rule := range d.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(normalizedTranscript, trigger) {
				topics = append(topics, rule.Topic)
				break
			}
		}
	}
	return topics
}

// TopicExtractor turns a conversation history into topic tags.
type TopicExtractor struct {
	detector domain.TopicDetector
	logger   *logrus.Logger
}

// NewTopicExtractor creates an extractor backed by the given detector.
func NewTopicExtractor(logger *logrus.Logger, detector domain.TopicDetector) *TopicExtractor {
	if detector == nil {
		detector = NewKeywordTopicDetector()
	}
	return &TopicExtractor{
		detector: detector,
		logger:   logger,
	}
}

// Extract rescans the whole history and returns the topics found in it.
func (e *TopicExtractor) Extract(history []domain.ConversationTurn) []domain.TopicTag {
	topics := e.detector.Detect(NormalizeTranscript(history))

	e.logger.WithFields(logrus.Fields{
		"turn_count":  len(history),
		"topic_count": len(topics),
	}).Debug("Extracted topics from transcript")

	return topics
}

// NormalizeTranscript lower-cases every turn and joins them with a single space.
func NormalizeTranscript(history []domain.ConversationTurn) string {
	parts := make([]string, len(history))
	for i, turn := range history {
		parts[i] = strings.ToLower(turn.Text)
	}
	return strings.Join(parts, " ")
}
