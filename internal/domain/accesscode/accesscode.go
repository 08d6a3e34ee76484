// Package accesscode issues short, human-copyable deck codes.
package accesscode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Alphabet omits I, O, 0 and 1 so codes survive being read aloud or copied by hand.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Default generator configuration constants.
const (
	defaultLength      = 8
	defaultMaxAttempts = 8
)

// ErrExhausted is returned when every attempt collided with an existing code.
var ErrExhausted = errors.New("access code attempts exhausted")

// Checker reports whether a code is already taken.
type Checker interface {
	AccessCodeExists(ctx context.Context, code string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, code string) (bool, error)

// AccessCodeExists implements Checker.
func (f CheckerFunc) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithLength sets the number of symbols per code.
func WithLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.length = n
		}
	}
}

// WithMaxAttempts bounds how many collisions are tolerated per code.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandom replaces the entropy source. Tests use it for determinism.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// Generator draws codes uniformly from Alphabet and retries on collision.
type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

// NewGenerator creates a Generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		length:      defaultLength,
		maxAttempts: defaultMaxAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New returns a code that checker does not know yet.
func (g *Generator) New(ctx context.Context, checker Checker) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", err
		}
		if checker == nil {
			return code, nil
		}
		taken, err := checker.AccessCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking access code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) draw() (string, error) {
	buf := make([]byte, g.length)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	// len(Alphabet) is 32, so the modulo keeps the distribution uniform.
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Normalize makes lookups case-insensitive and tolerant of surrounding whitespace.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
