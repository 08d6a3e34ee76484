package dedupe

// Option applies a configuration option to the Window.
type Option func(*Window)

// WithMaxSize sets how many keys are remembered. Zero or less is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(w *Window) {
		w.maxSize = maxSize
	}
}
