package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine.
var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrDeckNotFound      = errors.New("deck not found")
	ErrInvalidPolarity   = errors.New("invalid feedback polarity")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrNotStarted        = errors.New("service not started")
	ErrDuplicateFeedback = errors.New("feedback already recorded")
	ErrInvalidDraft      = errors.New("invalid draft request")
)

// RepositoryError reports that the store failed underneath an operation.
// Nothing was written when a deck generation returns it.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }
