package loader

import "github.com/okian/churnlens/internal/domain/dedupe"

// Option applies a configuration option to the loader.
type Option func(*loader)

// WithStrict controls malformed rows. Strict (the default) fails on the first
// malformed row; lenient skips it and reports it in Dataset.Rejected.
func WithStrict(strict bool) Option {
	return func(l *loader) {
		l.strict = strict
	}
}

// WithDeduper sets the tracker used to report duplicate account ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(l *loader) {
		if d != nil {
			l.deduper = d
		}
	}
}

// WithComma sets the field delimiter. Defaults to ','.
func WithComma(r rune) Option {
	return func(l *loader) {
		if r != 0 {
			l.comma = r
		}
	}
}
