package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithCaseFold makes ids that differ only in case count as the same account.
func WithCaseFold(fold bool) Option {
	return func(d *inMemoryDeduper) {
		d.foldCase = fold
	}
}
