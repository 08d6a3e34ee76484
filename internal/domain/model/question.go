// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownPolarity is returned when feedback polarity is not like/dislike.
var ErrUnknownPolarity = errors.New("unknown feedback polarity")

// Polarity is the direction of a single audience reaction.
type Polarity string

// Accepted polarities.
const (
	PolarityLike    Polarity = "like"
	PolarityDislike Polarity = "dislike"
)

// ParsePolarity maps raw input onto the closed polarity set.
func ParsePolarity(raw string) (Polarity, error) {
	switch Polarity(strings.ToLower(strings.TrimSpace(raw))) {
	case PolarityLike:
		return PolarityLike, nil
	case PolarityDislike:
		return PolarityDislike, nil
	}
	return "", ErrUnknownPolarity
}

// Usage records that a question was dealt at a location.
type Usage struct {
	LocationID string    `json:"location_id"`
	At         time.Time `json:"at"`
}

// Performance aggregates feedback for a question.
// Views always equals Likes + Dislikes.
type Performance struct {
	Views    int     `json:"views"`
	Likes    int     `json:"likes"`
	Dislikes int     `json:"dislikes"`
	Score    float64 `json:"score"`
}

// LikeRate is likes/views, or 0 when the question was never rated.
func (p Performance) LikeRate() float64 {
	if p.Views == 0 {
		return 0
	}
	return float64(p.Likes) / float64(p.Views)
}

// Question is a reusable conversation prompt.
type Question struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	OccasionID   string      `json:"occasion_id"`
	Category     Category    `json:"category"`
	Phase        Phase       `json:"deck_phase"`
	CreatedAt    time.Time   `json:"created_at"`
	IsNovelty    bool        `json:"is_novelty"`
	UsageHistory []Usage     `json:"usage_history"`
	Performance  Performance `json:"performance"`
}

// UsedSince reports whether the question was dealt at locationID strictly after cutoff.
func (q *Question) UsedSince(locationID string, cutoff time.Time) bool {
	for _, u := range q.UsageHistory {
		if u.LocationID == locationID && u.At.After(cutoff) {
			return true
		}
	}
	return false
}

// UsedElsewhere reports whether any usage was recorded at a location other than locationID.
func (q *Question) UsedElsewhere(locationID string) bool {
	for _, u := range q.UsageHistory {
		if u.LocationID != locationID {
			return true
		}
	}
	return false
}

// Apply counts one reaction. The score is not touched; callers rescore explicitly.
func (q *Question) Apply(p Polarity) {
	q.Performance.Views++
	switch p {
	case PolarityLike:
		q.Performance.Likes++
	case PolarityDislike:
		q.Performance.Dislikes++
	}
}

// Clone returns a deep copy so callers can mutate without aliasing usage history.
func (q Question) Clone() Question {
	if q.UsageHistory != nil {
		h := make([]Usage, len(q.UsageHistory))
		copy(h, q.UsageHistory)
		q.UsageHistory = h
	}
	return q
}

// Draft is a question proposal that has not been persisted yet.
type Draft struct {
	Text      string   `json:"text"`
	Category  Category `json:"category"`
	Phase     Phase    `json:"deck_phase"`
	IsNovelty bool     `json:"is_novelty"`
}

// Feedback is one immutable reaction event.
type Feedback struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"question_id"`
	OccasionID  string    `json:"occasion_id"`
	LocationID  string    `json:"location_id"`
	At          time.Time `json:"at"`
	Polarity    Polarity  `json:"feedback"`
	SubmitterID string    `json:"submitter_id,omitempty"`
}

// Location is a venue meeting on a fixed weekday.
type Location struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Weekday time.Weekday `json:"day_of_week"`
}

// Deck is a generated batch of questions for one (occasion, location) pairing.
type Deck struct {
	ID          string    `json:"id"`
	OccasionID  string    `json:"occasion_id"`
	LocationID  string    `json:"location_id"`
	CreatedAt   time.Time `json:"created_at"`
	QuestionIDs []string  `json:"question_ids"`
	AccessCode  string    `json:"access_code"`
	Active      bool      `json:"active"`
}

// HydratedDeck is a deck with its question ids resolved.
// Ids that no longer resolve are dropped.
type HydratedDeck struct {
	Deck
	Questions []Question `json:"questions"`
}
