// Package selection holds the pure stages that pick questions for a deck.
//
// Stages never fail on empty input; they return fewer questions instead.
// Inputs are never mutated, outputs preserve input order unless a stage
// documents a sort.
package selection

import (
	"time"

	"github.com/okian/entalk/internal/domain/model"
)

// DefaultCooldown is how long a question stays out of rotation at a location after being dealt there.
const DefaultCooldown = 28 * 24 * time.Hour

// Available returns the questions not dealt at locationID within cooldown before now.
// A non-positive cooldown falls back to DefaultCooldown.
func Available(questions []model.Question, locationID string, now time.Time, cooldown time.Duration) []model.Question {
	cutoff := cutoffFor(now, cooldown)
	out := make([]model.Question, 0, len(questions))
	for i := range questions {
		if !questions[i].UsedSince(locationID, cutoff) {
			out = append(out, questions[i])
		}
	}
	return out
}

func cutoffFor(now time.Time, cooldown time.Duration) time.Time {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return now.Add(-cooldown)
}

// without returns pool minus any question whose id is in picked, preserving order.
func without(pool []model.Question, picked ...[]model.Question) []model.Question {
	ids := make(map[string]struct{})
	for _, group := range picked {
		for i := range group {
			ids[group[i].ID] = struct{}{}
		}
	}
	out := make([]model.Question, 0, len(pool))
	for i := range pool {
		if _, ok := ids[pool[i].ID]; !ok {
			out = append(out, pool[i])
		}
	}
	return out
}
