package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/pkg/metrics"
)

const defaultMaxLimit = 1000

// Snapshot is one immutable evaluation result. It is never mutated after
// Replace publishes it.
type Snapshot struct {
	RunID       string
	EvaluatedAt time.Time
	Accounts    []Ranked // rank order
	byID        map[string]int
}

// Len returns the number of accounts in the snapshot.
func (s *Snapshot) Len() int { return len(s.Accounts) }

// Classified returns the accounts without their rank, in rank order.
func (s *Snapshot) Classified() []model.ClassifiedAccount {
	out := make([]model.ClassifiedAccount, len(s.Accounts))
	for i := range s.Accounts {
		out[i] = s.Accounts[i].ClassifiedAccount
	}
	return out
}

// SnapshotStore implements Store with a single atomically swapped pointer.
// Readers load the pointer once and work on that snapshot only.
type SnapshotStore struct {
	current  atomic.Pointer[Snapshot]
	maxLimit int
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLimit returns the cap applied to List and TopN.
func (s *SnapshotStore) MaxLimit() int { return s.maxLimit }

// Replace ranks accounts and publishes them. The input slice is not retained.
func (s *SnapshotStore) Replace(_ context.Context, runID string, at time.Time, accounts []model.ClassifiedAccount) *Snapshot {
	ranked := make([]Ranked, len(accounts))
	for i := range accounts {
		ranked[i] = Ranked{ClassifiedAccount: accounts[i]}
	}
	sortRanked(ranked)
	assignRanksWithTies(ranked)

	byID := make(map[string]int, len(ranked))
	for i := range ranked {
		// Duplicate ids resolve to the better ranked row.
		if _, ok := byID[ranked[i].Record.AccountID]; !ok {
			byID[ranked[i].Record.AccountID] = i
		}
	}

	snap := &Snapshot{RunID: runID, EvaluatedAt: at, Accounts: ranked, byID: byID}
	s.current.Store(snap)
	return snap
}

// Current returns the published snapshot.
func (s *SnapshotStore) Current(_ context.Context) (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Get returns one account by id.
func (s *SnapshotStore) Get(ctx context.Context, accountID string) (Ranked, error) {
	defer observe(time.Now())

	snap, err := s.Current(ctx)
	if err != nil {
		return Ranked{}, err
	}
	i, ok := snap.byID[strings.TrimSpace(accountID)]
	if !ok {
		return Ranked{}, fmt.Errorf("%w: %q", ErrNotFound, accountID)
	}
	return snap.Accounts[i], nil
}

// List returns the accounts matching f in rank order. A zero limit means
// MaxLimit; a negative one is rejected.
func (s *SnapshotStore) List(ctx context.Context, f Filter) ([]Ranked, error) {
	defer observe(time.Now())

	if f.Limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, f.Limit)
	}
	limit := f.Limit
	if limit == 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}

	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, 0, min(limit, len(snap.Accounts)))
	for i := range snap.Accounts {
		if len(out) == limit {
			break
		}
		a := &snap.Accounts[i]
		if f.Category != "" && a.Classification.Category != f.Category {
			continue
		}
		if f.Action != "" && a.Classification.RecommendedAction != f.Action {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// TopN returns the first n accounts by revenue at risk.
func (s *SnapshotStore) TopN(ctx context.Context, n int) ([]Ranked, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return s.List(ctx, Filter{Limit: n})
}

// Count returns the number of accounts in the current snapshot, 0 before the
// first Replace.
func (s *SnapshotStore) Count(_ context.Context) int {
	if snap := s.current.Load(); snap != nil {
		return snap.Len()
	}
	return 0
}

func observe(start time.Time) {
	metrics.RecordSnapshotQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// sortRanked orders by revenue at risk descending, then account id ascending.
func sortRanked(rs []Ranked) {
	sort.SliceStable(rs, func(i, j int) bool {
		ri, rj := rs[i].Classification.RevenueAtRisk, rs[j].Classification.RevenueAtRisk
		if ri != rj {
			return ri > rj
		}
		return rs[i].Record.AccountID < rs[j].Record.AccountID
	})
}

// assignRanksWithTies gives equal revenue at risk the same rank and keeps
// ranks consecutive.
func assignRanksWithTies(rs []Ranked) {
	rank := 0
	for i := range rs {
		if i == 0 || rs[i].Classification.RevenueAtRisk != rs[i-1].Classification.RevenueAtRisk {
			rank++
		}
		rs[i].Rank = rank
	}
}
