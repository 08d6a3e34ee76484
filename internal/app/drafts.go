package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/entalk/internal/adapters/generator"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/pkg/metrics"
)

const (
	defaultDraftCount = 5
	maxDraftCount     = 50
)

// DraftRequest asks the generator for questions outside of deck assembly.
// Empty label sets mean the full enumerations.
type DraftRequest struct {
	Topic      string           `json:"topic,omitempty"`
	Categories []model.Category `json:"categories,omitempty"`
	Phases     []model.Phase    `json:"deck_phases,omitempty"`
	Count      int              `json:"count,omitempty"`
	Novelty    bool             `json:"is_novelty,omitempty"`
}

// Drafted is the outcome of DraftQuestions. Saved is set only when the
// drafts were persisted under an occasion.
type Drafted struct {
	Drafts []model.Draft    `json:"drafts"`
	Saved  []model.Question `json:"questions,omitempty"`
}

// DraftQuestions generates questions on demand with the same timeout and
// template fallback as deck shortfalls. With a non-empty occasionID the drafts
// are stored as questions of that occasion.
func (s *Service) DraftQuestions(ctx context.Context, req DraftRequest, occasionID string) (Drafted, error) {
	if err := s.ready(); err != nil {
		return Drafted{}, err
	}
	genReq, err := draftRequest(req)
	if err != nil {
		return Drafted{}, err
	}

	drafts := s.draft(ctx, genReq)
	for i := range drafts {
		drafts[i].IsNovelty = req.Novelty
	}
	out := Drafted{Drafts: drafts}
	if occasionID == "" {
		return out, nil
	}

	saved, err := s.createQuestions(ctx, occasionID, drafts, metrics.SourceGenerated)
	if err != nil {
		return Drafted{}, err
	}
	out.Saved = saved
	return out, nil
}

func draftRequest(req DraftRequest) (generator.Request, error) {
	count := req.Count
	switch {
	case count == 0:
		count = defaultDraftCount
	case count < 0 || count > maxDraftCount:
		return generator.Request{}, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidDraft, maxDraftCount)
	}
	for _, c := range req.Categories {
		if !c.Valid() {
			return generator.Request{}, fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, c)
		}
	}
	for _, p := range req.Phases {
		if !p.Valid() {
			return generator.Request{}, fmt.Errorf("%w: unknown phase %q", ErrInvalidDraft, p)
		}
	}

	out := generator.Request{
		Categories: append([]model.Category(nil), req.Categories...),
		Phases:     append([]model.Phase(nil), req.Phases...),
		Count:      count,
		Topic:      strings.TrimSpace(req.Topic),
		Novelty:    req.Novelty,
	}
	if len(out.Categories) == 0 {
		out.Categories = model.Categories()
	}
	if len(out.Phases) == 0 {
		out.Phases = model.Phases()
	}
	return out, nil
}
