package selection

import (
	"sort"
	"time"

	"github.com/okian/entalk/internal/domain/model"
)

// DefaultCrossLocationLimit is how many proven questions are imported from other venues.
const DefaultCrossLocationLimit = 5

// CrossLocation picks up to limit questions that earned likes at other locations and are
// currently eligible at locationID, ordered by like rate descending with ties kept in
// input order. The second result is pool without the picks.
func CrossLocation(pool []model.Question, locationID string, now time.Time, cooldown time.Duration, limit int) ([]model.Question, []model.Question) {
	if limit <= 0 {
		return nil, pool
	}
	cutoff := cutoffFor(now, cooldown)

	candidates := make([]model.Question, 0)
	for i := range pool {
		q := &pool[i]
		if q.Performance.Likes > 0 && !q.UsedSince(locationID, cutoff) && q.UsedElsewhere(locationID) {
			candidates = append(candidates, *q)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Performance.LikeRate() > candidates[j].Performance.LikeRate()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, without(pool, candidates)
}
