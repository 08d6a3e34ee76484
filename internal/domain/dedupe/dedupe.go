// Package dedupe remembers submission keys so retried requests are applied once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key was seen before and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Window is a bounded Deduper that forgets the oldest key first.
// A non-positive size keeps every key.
type Window struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	seen    map[string]*list.Element
}

var _ Deduper = (*Window)(nil)

// NewWindow creates a Window with configuration options.
func NewWindow(opts ...Option) *Window {
	w := &Window{
		maxSize: defaultMaxSize,
		order:   list.New(),
		seen:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SeenAndRecord implements Deduper.
func (w *Window) SeenAndRecord(_ context.Context, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[key]; ok {
		return true
	}
	if w.maxSize > 0 && len(w.seen) >= w.maxSize {
		oldest := w.order.Front()
		w.order.Remove(oldest)
		delete(w.seen, oldest.Value.(string))
	}
	w.seen[key] = w.order.PushBack(key)
	return false
}

// Unrecord implements Deduper.
func (w *Window) Unrecord(_ context.Context, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if el, ok := w.seen[key]; ok {
		w.order.Remove(el)
		delete(w.seen, key)
	}
}

// Size implements Deduper.
func (w *Window) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(len(w.seen))
}
