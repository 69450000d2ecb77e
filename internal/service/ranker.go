package service

import (
	"sort"

	"github.com/consult-assist-server/internal/domain"
)

// DefaultMaxSuggestions is the display budget for the ranked suggestion list.
const DefaultMaxSuggestions = 5

// Ranker orders suggestions by priority tier and caps the list.
type Ranker struct {
	limit int
}

// NewRanker creates a ranker keeping at most limit suggestions.
func NewRanker(limit int) *Ranker {
	if limit <= 0 {
		limit = DefaultMaxSuggestions
	}
	return &Ranker{limit: limit}
}

// Limit returns the display budget.
func (r *Ranker) Limit() int {
	return r.limit
}

// Rank stable-sorts by priority (high, medium, low) and truncates to the budget.
// Suggestions past the budget are discarded. The input slice is left untouched.
func (r *Ranker) Rank(suggestions []domain.Suggestion) []domain.Suggestion {
	ranked := make([]domain.Suggestion, len(suggestions))
	copy(ranked, suggestions)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority.Rank() < ranked[j].Priority.Rank()
	})

	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}
	return ranked
}
