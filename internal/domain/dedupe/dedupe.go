// Package dedupe tracks account ids seen while loading a dataset.
package dedupe

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen account ids and reports repeats.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Duplicates returns every id seen more than once, sorted by id.
	Duplicates() []Duplicate

	// Size returns the number of distinct ids recorded.
	Size() int64
}

// Duplicate is an account id that occurred more than once.
type Duplicate struct {
	AccountID string `json:"account_id"`
	Count     int    `json:"count"`
	// Lines are the 1-based input lines that carried the id, when known.
	Lines []int `json:"lines,omitempty"`
}

// inMemoryDeduper keeps one counter per id; datasets are small and fully materialized.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*Duplicate
	size     atomic.Int64
	foldCase bool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[string]*Duplicate)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) key(id string) string {
	id = strings.TrimSpace(id)
	if d.foldCase {
		return strings.ToLower(id)
	}
	return id
}

// SeenAndRecord implements Deduper. A line number may be attached to ctx with WithLine.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := d.key(id)
	line, hasLine := lineFrom(ctx)
	if e, ok := d.seen[k]; ok {
		e.Count++
		if hasLine {
			e.Lines = append(e.Lines, line)
		}
		return true
	}

	e := &Duplicate{AccountID: strings.TrimSpace(id), Count: 1}
	if hasLine {
		e.Lines = []int{line}
	}
	d.seen[k] = e
	d.size.Add(1)
	return false
}

// Duplicates implements Deduper.
func (d *inMemoryDeduper) Duplicates() []Duplicate {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Duplicate
	for _, e := range d.seen {
		if e.Count > 1 {
			cp := *e
			cp.Lines = append([]int(nil), e.Lines...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

type lineKey struct{}

// WithLine attaches an input line number to ctx for SeenAndRecord.
func WithLine(ctx context.Context, line int) context.Context {
	return context.WithValue(ctx, lineKey{}, line)
}

func lineFrom(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	line, ok := ctx.Value(lineKey{}).(int)
	return line, ok
}
