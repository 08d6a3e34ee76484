package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/entalk/internal/adapters/repository"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/internal/domain/scoring"
	"github.com/okian/entalk/internal/domain/selection"
	"github.com/okian/entalk/pkg/logger"
	"github.com/okian/entalk/pkg/metrics"
)

const deckLockPrefix = "deck:"

// GenerateDeck assembles, persists and returns a new active deck for a location.
//
// Questions are picked in three stages: proven questions from other venues,
// a category and phase coverage pass, and novelty. A deck that is still below
// the target is topped up with generated questions. Every write happens in one
// repository transaction after the generator returned, so a failure leaves
// no partial deck behind and surfaces as a *RepositoryError.
func (s *Service) GenerateDeck(ctx context.Context, locationID, occasionID string) (model.HydratedDeck, error) {
	if err := s.ready(); err != nil {
		return model.HydratedDeck{}, err
	}
	began := time.Now()

	unlock, err := s.locker.Lock(ctx, deckLockPrefix+locationID)
	if err != nil {
		return model.HydratedDeck{}, fmt.Errorf("locking location %s: %w", locationID, err)
	}
	defer unlock()
	metrics.RecordLockWait(millis(time.Since(began)))

	now := s.now()
	all, err := s.store.Questions(ctx)
	if err != nil {
		return model.HydratedDeck{}, s.repositoryError("list_questions", err)
	}

	pool := selection.Available(all, locationID, now, s.cooldown)
	rescored := make([]scoring.Rescored, len(pool))
	for i := range pool {
		rescored[i] = s.scorer.Rescore(&pool[i], now)
	}

	cross, rest := selection.CrossLocation(pool, locationID, now, s.cooldown, s.crossLimit)
	coverage, rest := selection.Coverage(rest, s.coverageQuota)
	novelty := selection.Novelty(rest, s.noveltyQuota)

	selected := make([]model.Question, 0, s.deckTarget)
	selected = append(selected, cross...)
	selected = append(selected, coverage...)
	selected = append(selected, novelty...)

	var fresh []model.Question
	if len(selected) < s.deckTarget {
		fresh = s.resolveShortfall(ctx, selected, occasionID, now)
		selected = append(selected, fresh...)
	}

	deck := model.Deck{
		ID:          uuid.NewString(),
		OccasionID:  occasionID,
		LocationID:  locationID,
		CreatedAt:   now,
		QuestionIDs: make([]string, len(selected)),
		Active:      true,
	}
	usage := model.Usage{LocationID: locationID, At: now}
	for i := range selected {
		deck.QuestionIDs[i] = selected[i].ID
		selected[i].UsageHistory = append(selected[i].UsageHistory, usage)
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		for _, q := range fresh {
			if err := tx.AppendQuestion(ctx, q); err != nil {
				return err
			}
		}
		for _, r := range rescored {
			if err := tx.UpdateScore(ctx, r.QuestionID, r.Score); err != nil {
				return err
			}
		}
		for _, id := range deck.QuestionIDs {
			if err := tx.AppendUsage(ctx, id, usage); err != nil {
				return err
			}
		}
		code, err := s.codes.New(ctx, tx)
		if err != nil {
			metrics.RecordAccessCodeFailure()
			return err
		}
		deck.AccessCode = code
		return tx.AppendDeck(ctx, deck)
	})
	if err != nil {
		return model.HydratedDeck{}, s.repositoryError("commit_deck", err)
	}

	metrics.RecordRescored(len(rescored))
	metrics.RecordStagePicks(metrics.StageCrossLocation, len(cross))
	metrics.RecordStagePicks(metrics.StageCoverage, len(coverage))
	metrics.RecordStagePicks(metrics.StageNovelty, len(novelty))
	metrics.RecordStagePicks(metrics.StageShortfall, len(fresh))
	metrics.RecordQuestionsCreated(metrics.SourceGenerated, len(fresh))
	metrics.RecordDeckGenerated(len(selected), millis(time.Since(began)))

	s.logger.Info(ctx, "deck generated",
		logger.String("deck", deck.ID),
		logger.String("location", locationID),
		logger.String("occasion", occasionID),
		logger.Int("size", len(selected)),
		logger.Int("crossLocation", len(cross)),
		logger.Int("coverage", len(coverage)),
		logger.Int("novelty", len(novelty)),
		logger.Int("generated", len(fresh)),
	)

	return model.HydratedDeck{Deck: deck, Questions: selected}, nil
}
