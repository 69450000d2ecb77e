package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/consult-assist-server/internal/domain"
)

func TestTopicLedger(t *testing.T) {
	ledger := NewTopicLedger()
	assert.Equal(t, 0, ledger.Len())
	assert.Equal(t, []domain.TopicTag{}, ledger.Topics())

	assert.True(t, ledger.Add(domain.TOPIC_VISION))
	assert.False(t, ledger.Add(domain.TOPIC_VISION))

	added := ledger.Merge([]domain.TopicTag{domain.TOPIC_DIET, domain.TOPIC_VISION, domain.TOPIC_SYMPTOMS})
	assert.Equal(t, []domain.TopicTag{domain.TOPIC_DIET, domain.TOPIC_SYMPTOMS}, added)

	assert.Equal(t, []domain.TopicTag{domain.TOPIC_VISION, domain.TOPIC_DIET, domain.TOPIC_SYMPTOMS}, ledger.Topics())
	assert.True(t, ledger.Has(domain.TOPIC_DIET))
	assert.False(t, ledger.Has(domain.TOPIC_EXERCISE))
}

func TestTopicLedger_Monotonic(t *testing.T) {
	ledger := NewTopicLedger(domain.TOPIC_FOOT_CARE)

	ledger.Merge(nil)
	ledger.Merge([]domain.TopicTag{domain.TOPIC_DIET})

	assert.True(t, ledger.Has(domain.TOPIC_FOOT_CARE))
	assert.Equal(t, 2, ledger.Len())
}

func TestTopicLedger_Clone(t *testing.T) {
	ledger := NewTopicLedger(domain.TOPIC_DIET)
	clone := ledger.Clone()

	clone.Add(domain.TOPIC_VISION)

	assert.False(t, ledger.Has(domain.TOPIC_VISION))
	assert.True(t, clone.Has(domain.TOPIC_DIET))
}

func TestTopicLedger_Nil(t *testing.T) {
	var ledger *TopicLedger

	assert.False(t, ledger.Has(domain.TOPIC_DIET))
	assert.Equal(t, 0, ledger.Len())
	assert.Empty(t, ledger.Topics())
}
