package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/entalk/internal/domain/model"
)

// MemoryStore keeps everything in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	state  *memState
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) view(fn func(st *memState) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.state)
}

func (s *MemoryStore) update(fn func(st *memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn(s.state)
}

func (s *MemoryStore) Questions(ctx context.Context) (out []model.Question, err error) {
	err = s.view(func(st *memState) error { out, err = st.Questions(ctx); return err })
	return out, err
}

func (s *MemoryStore) QuestionsByOccasion(ctx context.Context, occasionID string) (out []model.Question, err error) {
	err = s.view(func(st *memState) error { out, err = st.QuestionsByOccasion(ctx, occasionID); return err })
	return out, err
}

func (s *MemoryStore) QuestionsByIDs(ctx context.Context, ids []string) (out []model.Question, err error) {
	err = s.view(func(st *memState) error { out, err = st.QuestionsByIDs(ctx, ids); return err })
	return out, err
}

func (s *MemoryStore) Question(ctx context.Context, id string) (out model.Question, err error) {
	err = s.view(func(st *memState) error { out, err = st.Question(ctx, id); return err })
	return out, err
}

func (s *MemoryStore) AppendQuestion(ctx context.Context, q model.Question) error {
	return s.update(func(st *memState) error { return st.AppendQuestion(ctx, q) })
}

func (s *MemoryStore) AppendUsage(ctx context.Context, questionID string, u model.Usage) error {
	return s.update(func(st *memState) error { return st.AppendUsage(ctx, questionID, u) })
}

func (s *MemoryStore) UpdatePerformance(ctx context.Context, questionID string, p model.Performance) error {
	return s.update(func(st *memState) error { return st.UpdatePerformance(ctx, questionID, p) })
}

func (s *MemoryStore) UpdateScore(ctx context.Context, questionID string, score float64) error {
	return s.update(func(st *memState) error { return st.UpdateScore(ctx, questionID, score) })
}

func (s *MemoryStore) AppendFeedback(ctx context.Context, f model.Feedback) error {
	return s.update(func(st *memState) error { return st.AppendFeedback(ctx, f) })
}

func (s *MemoryStore) FeedbackForQuestion(ctx context.Context, questionID string) (out []model.Feedback, err error) {
	err = s.view(func(st *memState) error { out, err = st.FeedbackForQuestion(ctx, questionID); return err })
	return out, err
}

func (s *MemoryStore) AppendDeck(ctx context.Context, d model.Deck) error {
	return s.update(func(st *memState) error { return st.AppendDeck(ctx, d) })
}

func (s *MemoryStore) DeckByAccessCode(ctx context.Context, code string) (out model.Deck, err error) {
	err = s.view(func(st *memState) error { out, err = st.DeckByAccessCode(ctx, code); return err })
	return out, err
}

func (s *MemoryStore) DecksByLocation(ctx context.Context, locationID string) (out []model.Deck, err error) {
	err = s.view(func(st *memState) error { out, err = st.DecksByLocation(ctx, locationID); return err })
	return out, err
}

func (s *MemoryStore) SetDeckActive(ctx context.Context, deckID string, active bool) error {
	return s.update(func(st *memState) error { return st.SetDeckActive(ctx, deckID, active) })
}

func (s *MemoryStore) AccessCodeExists(ctx context.Context, code string) (ok bool, err error) {
	err = s.view(func(st *memState) error { ok, err = st.AccessCodeExists(ctx, code); return err })
	return ok, err
}

func (s *MemoryStore) Locations(ctx context.Context) (out []model.Location, err error) {
	err = s.view(func(st *memState) error { out, err = st.Locations(ctx); return err })
	return out, err
}

func (s *MemoryStore) AppendLocation(ctx context.Context, l model.Location) error {
	return s.update(func(st *memState) error { return st.AppendLocation(ctx, l) })
}

func (s *MemoryStore) Stats(ctx context.Context) (out Stats, err error) {
	err = s.view(func(st *memState) error { out, err = st.Stats(ctx); return err })
	return out, err
}

// Atomically holds the write lock for the whole of fn and restores a snapshot
// when fn fails.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	snapshot := s.state.clone()
	if err := fn(memTx{s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Close releases the store. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memTx is the unlocked view handed to Atomically callbacks.
type memTx struct {
	*memState
}

func (t memTx) Atomically(_ context.Context, fn func(tx Store) error) error { return fn(t) }

func (memTx) Close() error { return nil }

type memState struct {
	questions []model.Question
	qIndex    map[string]int
	feedback  []model.Feedback
	decks     []model.Deck
	dIndex    map[string]int
	codes     map[string]int
	locations []model.Location
	lIndex    map[string]struct{}
}

func newMemState() *memState {
	return &memState{
		qIndex: make(map[string]int),
		dIndex: make(map[string]int),
		codes:  make(map[string]int),
		lIndex: make(map[string]struct{}),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	c.questions = make([]model.Question, len(st.questions))
	for i, q := range st.questions {
		c.questions[i] = q.Clone()
		c.qIndex[q.ID] = i
	}
	c.feedback = append([]model.Feedback(nil), st.feedback...)
	c.decks = make([]model.Deck, len(st.decks))
	for i, d := range st.decks {
		c.decks[i] = cloneDeck(d)
		c.dIndex[d.ID] = i
		c.codes[d.AccessCode] = i
	}
	c.locations = append([]model.Location(nil), st.locations...)
	for id := range st.lIndex {
		c.lIndex[id] = struct{}{}
	}
	return c
}

func cloneDeck(d model.Deck) model.Deck {
	d.QuestionIDs = append([]string(nil), d.QuestionIDs...)
	return d
}

func (st *memState) Questions(context.Context) ([]model.Question, error) {
	out := make([]model.Question, len(st.questions))
	for i, q := range st.questions {
		out[i] = q.Clone()
	}
	return out, nil
}

func (st *memState) QuestionsByOccasion(_ context.Context, occasionID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range st.questions {
		if q.OccasionID == occasionID {
			out = append(out, q.Clone())
		}
	}
	return out, nil
}

func (st *memState) QuestionsByIDs(_ context.Context, ids []string) ([]model.Question, error) {
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if i, ok := st.qIndex[id]; ok {
			out = append(out, st.questions[i].Clone())
		}
	}
	return out, nil
}

func (st *memState) Question(_ context.Context, id string) (model.Question, error) {
	i, ok := st.qIndex[id]
	if !ok {
		return model.Question{}, ErrNotFound
	}
	return st.questions[i].Clone(), nil
}

func (st *memState) AppendQuestion(_ context.Context, q model.Question) error {
	if _, ok := st.qIndex[q.ID]; ok {
		return fmt.Errorf("question %s: %w", q.ID, ErrConflict)
	}
	st.qIndex[q.ID] = len(st.questions)
	st.questions = append(st.questions, q.Clone())
	return nil
}

func (st *memState) AppendUsage(_ context.Context, questionID string, u model.Usage) error {
	i, ok := st.qIndex[questionID]
	if !ok {
		return fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	st.questions[i].UsageHistory = append(st.questions[i].UsageHistory, u)
	return nil
}

func (st *memState) UpdatePerformance(_ context.Context, questionID string, p model.Performance) error {
	i, ok := st.qIndex[questionID]
	if !ok {
		return fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	st.questions[i].Performance = p
	return nil
}

func (st *memState) UpdateScore(_ context.Context, questionID string, score float64) error {
	i, ok := st.qIndex[questionID]
	if !ok {
		return fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	st.questions[i].Performance.Score = score
	return nil
}

func (st *memState) AppendFeedback(_ context.Context, f model.Feedback) error {
	st.feedback = append(st.feedback, f)
	return nil
}

func (st *memState) FeedbackForQuestion(_ context.Context, questionID string) ([]model.Feedback, error) {
	var out []model.Feedback
	for _, f := range st.feedback {
		if f.QuestionID == questionID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (st *memState) AppendDeck(_ context.Context, d model.Deck) error {
	if _, ok := st.dIndex[d.ID]; ok {
		return fmt.Errorf("deck %s: %w", d.ID, ErrConflict)
	}
	if _, ok := st.codes[d.AccessCode]; ok {
		return fmt.Errorf("access code %s: %w", d.AccessCode, ErrConflict)
	}
	st.dIndex[d.ID] = len(st.decks)
	st.codes[d.AccessCode] = len(st.decks)
	st.decks = append(st.decks, cloneDeck(d))
	return nil
}

func (st *memState) DeckByAccessCode(_ context.Context, code string) (model.Deck, error) {
	i, ok := st.codes[code]
	if !ok {
		return model.Deck{}, ErrNotFound
	}
	return cloneDeck(st.decks[i]), nil
}

func (st *memState) DecksByLocation(_ context.Context, locationID string) ([]model.Deck, error) {
	var out []model.Deck
	for _, d := range st.decks {
		if d.LocationID == locationID {
			out = append(out, cloneDeck(d))
		}
	}
	return out, nil
}

func (st *memState) SetDeckActive(_ context.Context, deckID string, active bool) error {
	i, ok := st.dIndex[deckID]
	if !ok {
		return fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
	}
	st.decks[i].Active = active
	return nil
}

func (st *memState) AccessCodeExists(_ context.Context, code string) (bool, error) {
	_, ok := st.codes[code]
	return ok, nil
}

func (st *memState) Locations(context.Context) ([]model.Location, error) {
	return append([]model.Location(nil), st.locations...), nil
}

func (st *memState) AppendLocation(_ context.Context, l model.Location) error {
	if _, ok := st.lIndex[l.ID]; ok {
		return fmt.Errorf("location %s: %w", l.ID, ErrConflict)
	}
	st.lIndex[l.ID] = struct{}{}
	st.locations = append(st.locations, l)
	return nil
}

func (st *memState) Stats(context.Context) (Stats, error) {
	return Stats{
		Questions: len(st.questions),
		Feedback:  len(st.feedback),
		Decks:     len(st.decks),
		Locations: len(st.locations),
	}, nil
}
