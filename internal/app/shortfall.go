package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/entalk/internal/adapters/generator"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/internal/domain/selection"
	"github.com/okian/entalk/pkg/logger"
	"github.com/okian/entalk/pkg/metrics"
)

// resolveShortfall returns exactly deckTarget-len(selected) new, unpersisted
// questions aimed at the categories and phases selected is missing.
func (s *Service) resolveShortfall(ctx context.Context, selected []model.Question, occasionID string, now time.Time) []model.Question {
	count := s.deckTarget - len(selected)
	if count <= 0 {
		return nil
	}

	req := generator.Request{
		Categories: selection.MissingCategories(selected),
		Phases:     selection.MissingPhases(selected),
		Count:      count,
	}
	if len(req.Categories) == 0 {
		req.Categories = model.Categories()
	}
	if len(req.Phases) == 0 {
		req.Phases = model.Phases()
	}

	drafts := s.draft(ctx, req)
	out := make([]model.Question, len(drafts))
	for i, d := range drafts {
		out[i] = model.Question{
			ID:         uuid.NewString(),
			Text:       d.Text,
			OccasionID: occasionID,
			Category:   d.Category,
			Phase:      d.Phase,
			CreatedAt:  now,
			IsNovelty:  d.IsNovelty,
		}
	}
	return out
}

// draft asks the generator under the configured timeout. Any failure falls
// back to templates; a short answer is topped up with templates.
func (s *Service) draft(ctx context.Context, req generator.Request) []model.Draft {
	callCtx, cancel := context.WithTimeout(ctx, s.generatorTimeout)
	defer cancel()

	backend := s.generator.Name()
	began := time.Now()
	drafts, err := s.generator.Generate(callCtx, req)
	latency := millis(time.Since(began))
	if err != nil {
		metrics.RecordGeneratorRequest(backend, metrics.OutcomeError, latency)
		metrics.RecordGeneratorFallback()
		s.logger.Warn(ctx, "generator failed, falling back to templates",
			logger.String("backend", backend),
			logger.Int("count", req.Count),
			logger.Error(err),
		)
		return s.fallback.Render(req)
	}
	metrics.RecordGeneratorRequest(backend, metrics.OutcomeSuccess, latency)

	drafts = usable(drafts)
	if missing := req.Count - len(drafts); missing > 0 {
		s.logger.Debug(ctx, "generator under-delivered, topping up with templates",
			logger.String("backend", backend),
			logger.Int("missing", missing),
		)
		top := req
		top.Count = missing
		drafts = append(drafts, s.fallback.Render(top)...)
	}
	return drafts[:req.Count]
}

// usable drops drafts a deck cannot carry.
func usable(drafts []model.Draft) []model.Draft {
	out := drafts[:0:0]
	for _, d := range drafts {
		d.Text = strings.TrimSpace(d.Text)
		if d.Text == "" || !d.Category.Valid() || !d.Phase.Valid() {
			continue
		}
		out = append(out, d)
	}
	return out
}
