// Package repository holds questions, feedback, locations and decks.
package repository

import (
	"context"

	"github.com/okian/entalk/internal/domain/model"
)

// Stats summarises repository contents.
type Stats struct {
	Questions int
	Feedback  int
	Decks     int
	Locations int
}

// Store provides read/write access to the deck engine's state. Reads return
// copies; callers may mutate them freely. Insertion order is preserved for
// questions, usage history and deck question lists.
type Store interface {
	// Questions returns every question in insertion order.
	Questions(ctx context.Context) ([]model.Question, error)
	// QuestionsByOccasion returns questions owned by occasionID in insertion order.
	QuestionsByOccasion(ctx context.Context, occasionID string) ([]model.Question, error)
	// QuestionsByIDs resolves ids in the given order, silently skipping unknown ids.
	QuestionsByIDs(ctx context.Context, ids []string) ([]model.Question, error)
	// Question returns ErrNotFound for unknown ids.
	Question(ctx context.Context, id string) (model.Question, error)
	AppendQuestion(ctx context.Context, q model.Question) error
	AppendUsage(ctx context.Context, questionID string, u model.Usage) error
	UpdatePerformance(ctx context.Context, questionID string, p model.Performance) error
	// UpdateScore touches only performance.score, leaving feedback counters alone.
	UpdateScore(ctx context.Context, questionID string, score float64) error

	AppendFeedback(ctx context.Context, f model.Feedback) error
	FeedbackForQuestion(ctx context.Context, questionID string) ([]model.Feedback, error)

	AppendDeck(ctx context.Context, d model.Deck) error
	DeckByAccessCode(ctx context.Context, code string) (model.Deck, error)
	DecksByLocation(ctx context.Context, locationID string) ([]model.Deck, error)
	SetDeckActive(ctx context.Context, deckID string, active bool) error
	AccessCodeExists(ctx context.Context, code string) (bool, error)

	Locations(ctx context.Context) ([]model.Location, error)
	AppendLocation(ctx context.Context, l model.Location) error

	Stats(ctx context.Context) (Stats, error)

	// Atomically runs fn against a transactional view. Either every write made
	// through tx is kept or none is. Nested calls join the outer transaction.
	Atomically(ctx context.Context, fn func(tx Store) error) error
	Close() error
}
