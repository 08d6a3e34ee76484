package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/okian/entalk/internal/adapters/repository"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/pkg/logger"
	"github.com/okian/entalk/pkg/metrics"
)

// FeedbackRequest is one audience reaction as submitted.
type FeedbackRequest struct {
	QuestionID  string `json:"question_id"`
	OccasionID  string `json:"occasion_id"`
	LocationID  string `json:"location_id"`
	Polarity    string `json:"feedback"`
	SubmitterID string `json:"submitter_id,omitempty"`
	// RequestID makes retries safe: a reused id is rejected with ErrDuplicateFeedback.
	RequestID string `json:"request_id,omitempty"`
}

// FeedbackStats summarises the reactions to one question.
type FeedbackStats struct {
	QuestionID string  `json:"question_id"`
	Views      int     `json:"views"`
	Likes      int     `json:"likes"`
	Dislikes   int     `json:"dislikes"`
	LikeRate   float64 `json:"like_rate"`
	Score      float64 `json:"score"`
}

// RecordFeedback counts a reaction, rescores the question and stores the event.
// An unknown polarity is rejected before anything is written.
func (s *Service) RecordFeedback(ctx context.Context, req FeedbackRequest) (model.Feedback, error) {
	if err := s.ready(); err != nil {
		return model.Feedback{}, err
	}
	polarity, err := model.ParsePolarity(req.Polarity)
	if err != nil {
		return model.Feedback{}, ErrInvalidPolarity
	}
	if req.RequestID != "" {
		if s.deduper.SeenAndRecord(ctx, req.RequestID) {
			metrics.RecordFeedbackDuplicate()
			return model.Feedback{}, ErrDuplicateFeedback
		}
	}

	now := s.now()
	fb := model.Feedback{
		ID:          uuid.NewString(),
		QuestionID:  req.QuestionID,
		OccasionID:  req.OccasionID,
		LocationID:  req.LocationID,
		At:          now,
		Polarity:    polarity,
		SubmitterID: req.SubmitterID,
	}

	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		q, err := tx.Question(ctx, req.QuestionID)
		if err != nil {
			return err
		}
		q.Apply(polarity)
		s.scorer.Rescore(&q, now)
		if err := tx.UpdatePerformance(ctx, q.ID, q.Performance); err != nil {
			return err
		}
		return tx.AppendFeedback(ctx, fb)
	})
	if err != nil && req.RequestID != "" {
		s.deduper.Unrecord(ctx, req.RequestID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return model.Feedback{}, ErrQuestionNotFound
	}
	if err != nil {
		return model.Feedback{}, s.repositoryError("record_feedback", err)
	}

	metrics.RecordFeedback(string(polarity))
	metrics.RecordRescored(1)
	s.logger.Debug(ctx, "feedback recorded",
		logger.String("question", fb.QuestionID),
		logger.String("location", fb.LocationID),
		logger.String("polarity", string(polarity)),
	)
	return fb, nil
}

// FeedbackStats returns the counters and score of a question.
func (s *Service) FeedbackStats(ctx context.Context, questionID string) (FeedbackStats, error) {
	q, err := s.Question(ctx, questionID)
	if err != nil {
		return FeedbackStats{}, err
	}
	p := q.Performance
	return FeedbackStats{
		QuestionID: q.ID,
		Views:      p.Views,
		Likes:      p.Likes,
		Dislikes:   p.Dislikes,
		LikeRate:   p.LikeRate(),
		Score:      p.Score,
	}, nil
}

// Feedback lists the reactions recorded for a question, oldest first.
func (s *Service) Feedback(ctx context.Context, questionID string) ([]model.Feedback, error) {
	if _, err := s.Question(ctx, questionID); err != nil {
		return nil, err
	}
	out, err := s.store.FeedbackForQuestion(ctx, questionID)
	if err != nil {
		return nil, s.repositoryError("feedback_for_question", err)
	}
	return out, nil
}
