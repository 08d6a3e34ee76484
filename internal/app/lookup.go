package service

import (
	"context"
	"errors"
	"sort"

	"github.com/okian/entalk/internal/adapters/repository"
	"github.com/okian/entalk/internal/domain/accesscode"
	"github.com/okian/entalk/internal/domain/model"
)

// DeckByAccessCode returns the deck issued under code, case-insensitively.
// Question ids that no longer resolve are dropped from the result.
func (s *Service) DeckByAccessCode(ctx context.Context, code string) (model.HydratedDeck, error) {
	if err := s.ready(); err != nil {
		return model.HydratedDeck{}, err
	}
	deck, err := s.store.DeckByAccessCode(ctx, accesscode.Normalize(code))
	if errors.Is(err, repository.ErrNotFound) {
		return model.HydratedDeck{}, ErrDeckNotFound
	}
	if err != nil {
		return model.HydratedDeck{}, s.repositoryError("deck_by_code", err)
	}
	return s.hydrate(ctx, deck)
}

type activeLookup struct {
	deck  model.HydratedDeck
	found bool
}

// ActiveDeckForLocation returns the newest active deck at a location.
// found is false when the location has none.
func (s *Service) ActiveDeckForLocation(ctx context.Context, locationID string) (model.HydratedDeck, bool, error) {
	if err := s.ready(); err != nil {
		return model.HydratedDeck{}, false, err
	}
	// The shared lookup outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := s.active.DoChan(locationID, func() (any, error) {
		decks, err := s.store.DecksByLocation(shared, locationID)
		if err != nil {
			return nil, s.repositoryError("decks_by_location", err)
		}
		active := decks[:0]
		for _, d := range decks {
			if d.Active {
				active = append(active, d)
			}
		}
		if len(active) == 0 {
			return activeLookup{}, nil
		}
		sort.SliceStable(active, func(i, j int) bool {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		})
		deck, err := s.hydrate(shared, active[0])
		if err != nil {
			return nil, err
		}
		return activeLookup{deck: deck, found: true}, nil
	})

	select {
	case <-ctx.Done():
		return model.HydratedDeck{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.HydratedDeck{}, false, r.Err
		}
		res := r.Val.(activeLookup)
		return cloneHydrated(res.deck), res.found, nil
	}
}

// SetDeckActive flips the active flag of a deck.
func (s *Service) SetDeckActive(ctx context.Context, deckID string, active bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.store.SetDeckActive(ctx, deckID, active)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrDeckNotFound
	}
	if err != nil {
		return s.repositoryError("set_deck_active", err)
	}
	return nil
}

func (s *Service) hydrate(ctx context.Context, deck model.Deck) (model.HydratedDeck, error) {
	qs, err := s.store.QuestionsByIDs(ctx, deck.QuestionIDs)
	if err != nil {
		return model.HydratedDeck{}, s.repositoryError("questions_by_ids", err)
	}
	return model.HydratedDeck{Deck: deck, Questions: qs}, nil
}

// cloneHydrated gives every singleflight caller its own copy.
func cloneHydrated(d model.HydratedDeck) model.HydratedDeck {
	if d.QuestionIDs != nil {
		d.QuestionIDs = append([]string(nil), d.QuestionIDs...)
	}
	if d.Questions != nil {
		qs := make([]model.Question, len(d.Questions))
		for i := range d.Questions {
			qs[i] = d.Questions[i].Clone()
		}
		d.Questions = qs
	}
	return d
}
