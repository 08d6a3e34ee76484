// Package scoring defines the contract for ranking questions from their feedback history and age.
package scoring

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/entalk/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultLikeWeight      = 0.7
	defaultFreshnessWeight = 0.3
	defaultJitterCeiling   = 0.1
	defaultFreshnessWindow = 30 * 24 * time.Hour
	day                    = 24 * time.Hour
)

// Option applies a configuration option to the JitteredScorer.
type Option func(*JitteredScorer)

// WithSeed makes the jitter sequence reproducible.
func WithSeed(seed int64) Option {
	return func(s *JitteredScorer) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // jitter is not security sensitive
	}
}

// WithSource injects the random source used for jitter.
func WithSource(src rand.Source) Option {
	return func(s *JitteredScorer) {
		if src != nil {
			s.rng = rand.New(src) //nolint:gosec // jitter is not security sensitive
		}
	}
}

// WithJitterCeiling sets the exclusive upper bound of the jitter term. Zero disables jitter.
func WithJitterCeiling(ceiling float64) Option {
	return func(s *JitteredScorer) {
		if ceiling >= 0 {
			s.jitterCeiling = ceiling
		}
	}
}

// WithFreshnessWindow sets the age at which the freshness boost reaches zero.
func WithFreshnessWindow(window time.Duration) Option {
	return func(s *JitteredScorer) {
		if window > 0 {
			s.freshnessWindow = window
		}
	}
}

// Rescored reports a score written back into a question.
type Rescored struct {
	QuestionID string
	Previous   float64
	Score      float64
}

// Scorer ranks questions. Implementations are not required to be pure:
// repeated calls on an unchanged question may return different values.
type Scorer interface {
	// Score computes a score without touching q.
	Score(q model.Question, now time.Time) float64
	// Rescore computes a score and stores it in q.Performance.Score.
	Rescore(q *model.Question, now time.Time) Rescored
}

// JitteredScorer scores as 0.7*likeRate + 0.3*freshness + U[0, 0.1).
// It is safe for concurrent use.
type JitteredScorer struct {
	likeWeight      float64
	freshnessWeight float64
	jitterCeiling   float64
	freshnessWindow time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScorer creates a scorer with configuration options. Without WithSeed or
// WithSource the jitter is seeded from the clock.
func NewScorer(opts ...Option) *JitteredScorer {
	s := &JitteredScorer{
		likeWeight:      defaultLikeWeight,
		freshnessWeight: defaultFreshnessWeight,
		jitterCeiling:   defaultJitterCeiling,
		freshnessWindow: defaultFreshnessWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter is not security sensitive
	}
	return s
}

// Freshness is a linear decay from 1 at creation to 0 at the end of window, floored at 0.
func Freshness(createdAt, now time.Time, window time.Duration) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	windowDays := float64(window) / float64(day)
	return math.Max(0, 1-ageDays/windowDays)
}

// Score computes a score for q at now.
func (s *JitteredScorer) Score(q model.Question, now time.Time) float64 {
	base := s.likeWeight*q.Performance.LikeRate() +
		s.freshnessWeight*Freshness(q.CreatedAt, now, s.freshnessWindow)
	return base + s.jitter()
}

// Rescore computes a score for q and writes it into q.Performance.Score.
func (s *JitteredScorer) Rescore(q *model.Question, now time.Time) Rescored {
	prev := q.Performance.Score
	q.Performance.Score = s.Score(*q, now)
	return Rescored{QuestionID: q.ID, Previous: prev, Score: q.Performance.Score}
}

func (s *JitteredScorer) jitter() float64 {
	if s.jitterCeiling == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() * s.jitterCeiling
}
