// Package repository holds the latest evaluated portfolio snapshot.
package repository

import (
	"context"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
)

// Ranked is a classified account with its position in the revenue-at-risk ranking.
type Ranked struct {
	Rank int
	model.ClassifiedAccount
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	Category model.Category
	Action   model.Action
	Limit    int
}

// Store provides read access to the current snapshot and atomic replacement.
type Store interface {
	// Replace ranks accounts and publishes them as the current snapshot.
	Replace(ctx context.Context, runID string, at time.Time, accounts []model.ClassifiedAccount) *Snapshot

	// Current returns the current snapshot or ErrNoSnapshot.
	Current(ctx context.Context) (*Snapshot, error)

	// Get returns one account by id. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, accountID string) (Ranked, error)

	// List returns the ranked accounts matching f.
	List(ctx context.Context, f Filter) ([]Ranked, error)

	// TopN returns the n accounts with the highest revenue at risk.
	TopN(ctx context.Context, n int) ([]Ranked, error)

	// Count returns the number of accounts in the current snapshot.
	Count(ctx context.Context) int
}
