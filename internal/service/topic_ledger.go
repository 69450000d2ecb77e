package service

import (
	"github.com/consult-assist-server/internal/domain"
)

// TopicLedger is the set of topics already covered in one consultation.
// Topics are never removed within a consultation.
type TopicLedger struct {
	order []domain.TopicTag
	index map[domain.TopicTag]struct{}
}

// NewTopicLedger creates a ledger holding the given topics.
func NewTopicLedger(topics ...domain.TopicTag) *TopicLedger {
	l := &TopicLedger{index: make(map[domain.TopicTag]struct{})}
	l.Merge(topics)
	return l
}

// Add records a topic. It returns false when the topic was already covered.
func (l *TopicLedger) Add(topic domain.TopicTag) bool {
	if _, ok := l.index[topic]; ok {
		return false
	}
	l.index[topic] = struct{}{}
	l.order = append(l.order, topic)
	return true
}

// Merge adds all topics and returns the ones that were new.
func (l *TopicLedger) Merge(topics []domain.TopicTag) []domain.TopicTag {
	var added []domain.TopicTag
	for _, topic := range topics {
		if l.Add(topic) {
			added = append(added, topic)
		}
	}
	return added
}

// Has reports whether the topic is covered. A nil ledger covers nothing.
func (l *TopicLedger) Has(topic domain.TopicTag) bool {
	if l == nil {
		return false
	}
	_, ok := l.index[topic]
	return ok
}

// Topics returns the covered topics in the order they were first seen.
func (l *TopicLedger) Topics() []domain.TopicTag {
	if l == nil {
		return []domain.TopicTag{}
	}
	out := make([]domain.TopicTag, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of covered topics.
func (l *TopicLedger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Clone returns an independent copy of the ledger.
func (l *TopicLedger) Clone() *TopicLedger {
	return NewTopicLedger(l.Topics()...)
}
