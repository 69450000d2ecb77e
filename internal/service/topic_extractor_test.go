package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/consult-assist-server/internal/domain"
)

func turns(texts ...string) []domain.ConversationTurn {
	history := make([]domain.ConversationTurn, len(texts))
	for i, text := range texts {
		speaker := domain.DOCTOR
		if i%2 == 1 {
			speaker = domain.PATIENT
		}
		history[i] = domain.ConversationTurn{Speaker: speaker, Text: text, Timestamp: time.Unix(int64(i), 0)}
	}
	return history
}

func TestKeywordTopicDetector_Detect(t *testing.T) {
	detector := NewKeywordTopicDetector()

	tests := []struct {
		name       string
		transcript string
		expected   []domain.TopicTag
	}{
		{"Empty", "", nil},
		{"Greeting", "good morning, how are you feeling today?", []domain.TopicTag{domain.TOPIC_SYMPTOMS}},
		{"Blood_Sugar", "my blood sugar has been high", []domain.TopicTag{domain.TOPIC_GLUCOSE_MONITORING}},
		{"Multi_Word_Trigger", "any physical activity lately", []domain.TopicTag{domain.TOPIC_EXERCISE}},
		{"Substring_Match", "have you seen the doctor", []domain.TopicTag{domain.TOPIC_VISION}},
		{"Stress_Maps_To_Mental_Health", "work stress is bad", []domain.TopicTag{domain.TOPIC_MENTAL_HEALTH}},
		{
			"Canonical_Order",
			"my feet tingle and i forget my medicine",
			[]domain.TopicTag{domain.TOPIC_MEDICATION, domain.TOPIC_FOOT_CARE},
		},
		{
			"Sloppy_Cut_Matches_Wound_Healing",
			"i cut back on sweets",
			[]domain.TopicTag{domain.TOPIC_WOUND_HEALING},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.Detect(tt.transcript))
		})
	}
}

func TestKeywordTopicDetector_CustomRules(t *testing.T) {
	detector := NewKeywordTopicDetector(KeywordRule{Topic: domain.TOPIC_DIET, Triggers: []string{"carbs"}})

	assert.Equal(t, []domain.TopicTag{domain.TOPIC_DIET}, detector.Detect("too many carbs"))
	assert.Empty(t, detector.Detect("food"))
}

func TestTopicExtractor_Extract(t *testing.T) {
	extractor := NewTopicExtractor(newTestLogger(t), nil)

	t.Run("Case_Insensitive", func(t *testing.T) {
		got := extractor.Extract(turns("Checking your GLUCOSE today", "My EYES are fine"))
		assert.Equal(t, []domain.TopicTag{domain.TOPIC_GLUCOSE_MONITORING, domain.TOPIC_VISION}, got)
	})

	t.Run("Whole_History_Rescanned", func(t *testing.T) {
		got := extractor.Extract(turns("how is your diet", "fine", "okay"))
		assert.Equal(t, []domain.TopicTag{domain.TOPIC_DIET}, got)
	})

	t.Run("Trigger_Spanning_Turns", func(t *testing.T) {
		// turns are joined with a single space, so a phrase split across turns still matches
		got := extractor.Extract(turns("let's talk about blood", "sugar"))
		assert.Contains(t, got, domain.TOPIC_GLUCOSE_MONITORING)
	})

	t.Run("Empty_History", func(t *testing.T) {
		assert.Empty(t, extractor.Extract(nil))
	})
}

func TestNormalizeTranscript(t *testing.T) {
	assert.Equal(t, "hello there i am fine", NormalizeTranscript(turns("Hello There", "I am FINE")))
	assert.Equal(t, "", NormalizeTranscript(nil))
}
