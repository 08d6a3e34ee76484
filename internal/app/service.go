// Package service wires the selection stages, the repository and the
// question generator into the deck engine used by the HTTP API and the CLI.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/entalk/internal/adapters/generator"
	"github.com/okian/entalk/internal/adapters/lock"
	"github.com/okian/entalk/internal/adapters/repository"
	"github.com/okian/entalk/internal/domain/accesscode"
	"github.com/okian/entalk/internal/domain/dedupe"
	"github.com/okian/entalk/internal/domain/model"
	"github.com/okian/entalk/internal/domain/scoring"
	"github.com/okian/entalk/internal/domain/selection"
	"github.com/okian/entalk/pkg/logger"
	"github.com/okian/entalk/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultDeckTarget       = 15
	defaultGeneratorTimeout = 4 * time.Second
)

// defaultLocations are the venues created on an empty store.
var defaultLocations = []model.Location{
	{Name: "Üsküdar", Weekday: time.Monday},
	{Name: "Bahçeşehir", Weekday: time.Tuesday},
	{Name: "Bostancı", Weekday: time.Wednesday},
	{Name: "Kadıköy", Weekday: time.Thursday},
	{Name: "Beşiktaş", Weekday: time.Friday},
	{Name: "Mecidiyeköy", Weekday: time.Saturday},
}

// Service is the deck engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	scorer    scoring.Scorer
	locker    lock.Locker
	generator generator.Generator
	fallback  *generator.Template
	codes     *accesscode.Generator
	deduper   dedupe.Deduper
	now       func() time.Time

	// Configuration
	cooldown         time.Duration
	crossLimit       int
	coverageQuota    int
	noveltyQuota     int
	deckTarget       int
	generatorTimeout time.Duration
	seedLocations    bool

	// Collapses concurrent active-deck lookups per location.
	active singleflight.Group

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the repository. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer sets the scoring model.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithLocker sets the per-location lock used around deck generation.
func WithLocker(locker lock.Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithGenerator sets the backend asked for shortfall questions.
func WithGenerator(g generator.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithAccessCodes sets the access code generator.
func WithAccessCodes(codes *accesscode.Generator) Option {
	return func(s *Service) {
		if codes != nil {
			s.codes = codes
		}
	}
}

// WithDeduper sets the window that drops replayed feedback submissions.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithClock replaces time.Now. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCooldown sets how long a question rests at a location after being dealt.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithCrossLocationLimit caps the proven questions imported from other venues.
func WithCrossLocationLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.crossLimit = n
		}
	}
}

// WithCoverageQuota sets the coverage stage target.
func WithCoverageQuota(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.coverageQuota = n
		}
	}
}

// WithNoveltyQuota sets how many novelty questions a deck carries.
func WithNoveltyQuota(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.noveltyQuota = n
		}
	}
}

// WithDeckTarget sets the minimum deck size topped up by the generator.
func WithDeckTarget(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.deckTarget = n
		}
	}
}

// WithGeneratorTimeout bounds each generator call.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.generatorTimeout = d
		}
	}
}

// WithSeedLocations toggles creating the default venues on an empty store.
func WithSeedLocations(enabled bool) Option {
	return func(s *Service) {
		s.seedLocations = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without options it runs on an in-memory store,
// an in-process lock and the template generator.
func New(opts ...Option) *Service {
	s := &Service{
		store:            repository.NewMemoryStore(),
		scorer:           scoring.NewScorer(),
		locker:           lock.NewLocal(),
		generator:        generator.NewTemplate(),
		fallback:         generator.NewTemplate(),
		codes:            accesscode.NewGenerator(),
		deduper:          dedupe.NewWindow(),
		now:              time.Now,
		cooldown:         selection.DefaultCooldown,
		crossLimit:       selection.DefaultCrossLocationLimit,
		coverageQuota:    selection.DefaultCoverageQuota,
		noveltyQuota:     selection.DefaultNoveltyQuota,
		deckTarget:       defaultDeckTarget,
		generatorTimeout: defaultGeneratorTimeout,
		seedLocations:    true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start seeds the default locations when enabled and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}

	s.logger.Info(ctx, "starting deck service...")

	if s.seedLocations {
		if err := s.seed(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.logger.Info(ctx, "deck service started",
		logger.String("generator", s.generator.Name()),
		logger.Duration("cooldown", s.cooldown),
		logger.Int("deckTarget", s.deckTarget),
	)
	return nil
}

func (s *Service) seed(ctx context.Context) error {
	existing, err := s.store.Locations(ctx)
	if err != nil {
		return s.repositoryError("list_locations", err)
	}
	if len(existing) > 0 {
		return nil
	}
	err = s.store.Atomically(ctx, func(tx repository.Store) error {
		for _, loc := range defaultLocations {
			loc.ID = uuid.NewString()
			if err := tx.AppendLocation(ctx, loc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.repositoryError("seed_locations", err)
	}
	s.logger.Info(ctx, "seeded default locations", logger.Int("count", len(defaultLocations)))
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping deck service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store", logger.Error(err))
	}
	if err := s.locker.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing locker", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "deck service stopped")
}

// Stats returns repository counts and refreshes the matching gauges.
func (s *Service) Stats(ctx context.Context) (repository.Stats, error) {
	if err := s.ready(); err != nil {
		return repository.Stats{}, err
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return repository.Stats{}, s.repositoryError("stats", err)
	}
	metrics.UpdateQuestionTotal(st.Questions)
	metrics.UpdateDeckTotal(st.Decks)
	return st, nil
}

// Locations lists the venues in insertion order.
func (s *Service) Locations(ctx context.Context) ([]model.Location, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	locs, err := s.store.Locations(ctx)
	if err != nil {
		return nil, s.repositoryError("list_locations", err)
	}
	return locs, nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) repositoryError(op string, err error) error {
	metrics.RecordRepositoryError(op)
	return &RepositoryError{Op: op, Err: err}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
