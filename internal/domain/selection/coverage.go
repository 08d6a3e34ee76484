package selection

import (
	"sort"

	"github.com/okian/entalk/internal/domain/model"
)

// DefaultCoverageQuota is the coverage stage's target when assembling a deck.
const DefaultCoverageQuota = 7

// Coverage builds a selection that touches every category and phase present in pool.
//
// It runs three greedy passes: the first pool question of each category in enumeration
// order, then the first remaining question of each phase, then the highest scored
// remaining questions until target is reached. target is a floor, not a cap: the first
// two passes alone can select up to ten questions and nothing is trimmed afterwards.
// The second result is pool without the selection, in pool order.
func Coverage(pool []model.Question, target int) ([]model.Question, []model.Question) {
	remaining := make([]model.Question, len(pool))
	copy(remaining, pool)
	selected := make([]model.Question, 0, target)

	take := func(match func(*model.Question) bool) {
		for i := range remaining {
			if match(&remaining[i]) {
				selected = append(selected, remaining[i])
				remaining = append(remaining[:i], remaining[i+1:]...)
				return
			}
		}
	}

	for _, c := range model.Categories() {
		take(func(q *model.Question) bool { return q.Category == c })
	}
	for _, p := range model.Phases() {
		take(func(q *model.Question) bool { return q.Phase == p })
	}

	if missing := target - len(selected); missing > 0 && len(remaining) > 0 {
		ranked := make([]model.Question, len(remaining))
		copy(ranked, remaining)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Performance.Score > ranked[j].Performance.Score
		})
		if missing > len(ranked) {
			missing = len(ranked)
		}
		fill := ranked[:missing]
		selected = append(selected, fill...)
		remaining = without(remaining, fill)
	}

	return selected, remaining
}
