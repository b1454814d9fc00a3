package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/churnlens/internal/domain/model"
)

// Results is a Sink with one slot per dataset position, so a parallel pass
// yields accounts in input order.
type Results struct {
	slots  []model.ClassifiedAccount
	filled []atomic.Bool
	count  atomic.Int64
}

// NewResults allocates n slots.
func NewResults(n int) *Results {
	if n < 0 {
		n = 0
	}
	return &Results{
		slots:  make([]model.ClassifiedAccount, n),
		filled: make([]atomic.Bool, n),
	}
}

// Put stores acc at seq. Each slot may be written once.
func (r *Results) Put(_ context.Context, seq int, acc model.ClassifiedAccount) error { //nolint:gocritic // hugeParam: stored by value
	if seq < 0 || seq >= len(r.slots) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, seq, len(r.slots))
	}
	if !r.filled[seq].CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %d", ErrSlotTaken, seq)
	}
	r.slots[seq] = acc
	r.count.Add(1)
	return nil
}

// Len returns the number of filled slots.
func (r *Results) Len() int { return int(r.count.Load()) }

// Accounts returns the classified accounts in input order. It fails with
// ErrIncomplete when a slot was never filled.
func (r *Results) Accounts() ([]model.ClassifiedAccount, error) {
	if got := r.Len(); got != len(r.slots) {
		return nil, fmt.Errorf("%w: %d of %d accounts classified", ErrIncomplete, got, len(r.slots))
	}
	out := make([]model.ClassifiedAccount, len(r.slots))
	copy(out, r.slots)
	return out, nil
}
