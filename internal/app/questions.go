package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/entalk/internal/adapters/repository"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/pkg/metrics"
)

// CreateQuestions validates every draft and appends them in input order.
// One invalid draft rejects the whole batch.
func (s *Service) CreateQuestions(ctx context.Context, occasionID string, drafts []model.Draft) ([]model.Question, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.createQuestions(ctx, occasionID, drafts, metrics.SourceAuthored)
}

func (s *Service) createQuestions(ctx context.Context, occasionID string, drafts []model.Draft, source string) ([]model.Question, error) {
	for i, d := range drafts {
		if err := validateDraft(d); err != nil {
			return nil, fmt.Errorf("draft %d: %w", i, err)
		}
	}

	now := s.now()
	out := make([]model.Question, len(drafts))
	for i, d := range drafts {
		out[i] = model.Question{
			ID:         uuid.NewString(),
			Text:       strings.TrimSpace(d.Text),
			OccasionID: occasionID,
			Category:   d.Category,
			Phase:      d.Phase,
			CreatedAt:  now,
			IsNovelty:  d.IsNovelty,
		}
	}

	err := s.store.Atomically(ctx, func(tx repository.Store) error {
		for _, q := range out {
			if err := tx.AppendQuestion(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.repositoryError("create_questions", err)
	}
	metrics.RecordQuestionsCreated(source, len(out))
	return out, nil
}

func validateDraft(d model.Draft) error {
	switch {
	case strings.TrimSpace(d.Text) == "":
		return fmt.Errorf("%w: empty text", ErrInvalidQuestion)
	case !d.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidQuestion, d.Category)
	case !d.Phase.Valid():
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidQuestion, d.Phase)
	}
	return nil
}

// QuestionsForOccasion lists the questions created for an occasion.
func (s *Service) QuestionsForOccasion(ctx context.Context, occasionID string) ([]model.Question, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	qs, err := s.store.QuestionsByOccasion(ctx, occasionID)
	if err != nil {
		return nil, s.repositoryError("questions_by_occasion", err)
	}
	return qs, nil
}

// Question returns one question by id.
func (s *Service) Question(ctx context.Context, id string) (model.Question, error) {
	if err := s.ready(); err != nil {
		return model.Question{}, err
	}
	q, err := s.store.Question(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Question{}, ErrQuestionNotFound
	}
	if err != nil {
		return model.Question{}, s.repositoryError("question", err)
	}
	return q, nil
}
