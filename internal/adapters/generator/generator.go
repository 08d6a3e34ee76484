// Package generator produces draft questions for decks that ran short of
// eligible stored questions.
package generator

import (
	"context"
	"fmt"

	"github.com/okian/entalk/internal/domain/model"
)

// Backend names.
const (
	BackendOpenAI   = "openai"
	BackendTemplate = "template"
)

// Request describes the drafts wanted: the labels to spread them over, an
// optional topic, and whether they should be unusual novelty questions.
type Request struct {
	Categories []model.Category
	Phases     []model.Phase
	Count      int
	Topic      string
	Novelty    bool
}

// Generator returns at most req.Count drafts. Calls carry no side effects and
// may be retried.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) ([]model.Draft, error)
}

// Error wraps a backend failure.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generator %s: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New selects a backend by name.
func New(backend, apiKey string, opts ...Option) (Generator, error) {
	switch backend {
	case BackendTemplate:
		return NewTemplate(), nil
	case BackendOpenAI:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAI(apiKey, opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// normalize fills empty label sets with the full enumerations.
func normalize(req Request) Request {
	if len(req.Categories) == 0 {
		req.Categories = model.Categories()
	}
	if len(req.Phases) == 0 {
		req.Phases = model.Phases()
	}
	return req
}
