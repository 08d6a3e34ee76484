package selection

import (
	"sort"

	"github.com/okian/entalk/internal/domain/model"
)

// DefaultNoveltyQuota is how many untested or novel prompts a deck carries.
const DefaultNoveltyQuota = 3

// Novelty picks up to count questions flagged as novelty, in pool order, then backfills
// with the least viewed regular questions. It returns fewer than count when pool is small.
func Novelty(pool []model.Question, count int) []model.Question {
	if count <= 0 {
		return nil
	}
	picked := make([]model.Question, 0, count)
	regular := make([]model.Question, 0, len(pool))
	for i := range pool {
		if !pool[i].IsNovelty {
			regular = append(regular, pool[i])
			continue
		}
		if len(picked) < count {
			picked = append(picked, pool[i])
		}
	}
	if len(picked) == count {
		return picked
	}

	sort.SliceStable(regular, func(i, j int) bool {
		return regular[i].Performance.Views < regular[j].Performance.Views
	})
	for i := 0; i < len(regular) && len(picked) < count; i++ {
		picked = append(picked, regular[i])
	}
	return picked
}
