package repository

import "time"

// Default SQLite configuration constants.
const (
	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
	// SQLite caps bound parameters per statement (32766 by default).
	defaultQueryBatch = 500
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*sqliteConfig)

type sqliteConfig struct {
	busyTimeout time.Duration
	journalMode string
	queryBatch  int
}

// WithBusyTimeout sets how long writers wait on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *sqliteConfig) {
		if d > 0 {
			c.busyTimeout = d
		}
	}
}

// WithJournalMode sets the SQLite journal mode (WAL, DELETE, MEMORY).
func WithJournalMode(mode string) Option {
	return func(c *sqliteConfig) {
		if mode != "" {
			c.journalMode = mode
		}
	}
}

// WithQueryBatch sets how many ids are bound into one IN (...) lookup.
func WithQueryBatch(n int) Option {
	return func(c *sqliteConfig) {
		if n > 0 {
			c.queryBatch = n
		}
	}
}
