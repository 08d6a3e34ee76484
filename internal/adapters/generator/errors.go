package generator

import "errors"

// Sentinel errors for the generator package.
var (
	ErrUnknownBackend = errors.New("unknown generator backend")
	ErrMissingAPIKey  = errors.New("generator api key is empty")
	ErrEmptyResponse  = errors.New("generator returned no questions")
	ErrRateLimited    = errors.New("generator rate limited")
)
