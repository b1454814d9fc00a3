package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
)

func account(id string, risk float64, c model.Category, a model.Action) model.ClassifiedAccount {
	return model.ClassifiedAccount{
		Record: model.AccountRecord{AccountID: id, ARR: risk * 2},
		Classification: model.Classification{
			Category:          c,
			RevenueAtRisk:     risk,
			RecommendedAction: a,
		},
	}
}

func fixture() []model.ClassifiedAccount {
	return []model.ClassifiedAccount{
		account("c", 100, model.CategoryStable, model.ActionMonitor),
		account("a", 600, model.CategoryChurnRisk, model.ActionExecRecoveryPlan),
		account("b", 600, model.CategoryChurnRisk, model.ActionExecRecoveryPlan),
		account("d", 300, model.CategoryUsageDecline, model.ActionUsageRecovery),
		account("e", 100, model.CategoryGrowthOpportunity, model.ActionExpansionUpsell),
	}
}

func TestSnapshotStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, err := store.Current(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
	if _, err := store.TopN(ctx, 3); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSnapshotStore_Ranking(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	snap := store.Replace(ctx, "run-1", at, fixture())
	if snap.RunID != "run-1" || !snap.EvaluatedAt.Equal(at) {
		t.Fatalf("unexpected snapshot metadata: %+v", snap)
	}

	wantIDs := []string{"a", "b", "d", "c", "e"}
	wantRanks := []int{1, 1, 2, 3, 3}
	for i, r := range snap.Accounts {
		if r.Record.AccountID != wantIDs[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantIDs[i], r.Record.AccountID)
		}
		if r.Rank != wantRanks[i] {
			t.Errorf("position %d: expected rank %d, got %d", i, wantRanks[i], r.Rank)
		}
	}

	if count := store.Count(ctx); count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}
	if got := len(snap.Classified()); got != 5 {
		t.Errorf("expected 5 classified accounts, got %d", got)
	}
}

func TestSnapshotStore_Get(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	store.Replace(ctx, "run", time.Now(), fixture())

	r, err := store.Get(ctx, " d ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Rank != 2 || r.Classification.Category != model.CategoryUsageDecline {
		t.Errorf("unexpected account: %+v", r)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	store.Replace(ctx, "run", time.Now(), []model.ClassifiedAccount{
		account("dup", 10, model.CategoryStable, model.ActionMonitor),
		account("dup", 90, model.CategoryChurnRisk, model.ActionExecRecoveryPlan),
	})

	r, err := store.Get(ctx, "dup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Classification.RevenueAtRisk != 90 {
		t.Errorf("expected the better ranked duplicate, got %+v", r)
	}
	if count := store.Count(ctx); count != 2 {
		t.Errorf("duplicates are kept, expected 2, got %d", count)
	}
}

func TestSnapshotStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(WithMaxLimit(4))
	store.Replace(ctx, "run", time.Now(), fixture())

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all capped by max limit", Filter{}, []string{"a", "b", "d", "c"}},
		{"by category", Filter{Category: model.CategoryChurnRisk}, []string{"a", "b"}},
		{"by action", Filter{Action: model.ActionExpansionUpsell}, []string{"e"}},
		{"with limit", Filter{Category: model.CategoryChurnRisk, Limit: 1}, []string{"a"}},
		{"limit above max", Filter{Limit: 50}, []string{"a", "b", "d", "c"}},
		{"no match", Filter{Category: model.CategoryRenewalRisk}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d rows, got %d", len(tt.want), len(got))
			}
			for i, r := range got {
				if r.Record.AccountID != tt.want[i] {
					t.Errorf("row %d: expected %s, got %s", i, tt.want[i], r.Record.AccountID)
				}
			}
		})
	}

	if _, err := store.List(ctx, Filter{Limit: -1}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestSnapshotStore_TopN(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	store.Replace(ctx, "run", time.Now(), fixture())

	top, err := store.TopN(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 2 || top[0].Record.AccountID != "a" || top[1].Record.AccountID != "b" {
		t.Errorf("unexpected top 2: %+v", top)
	}

	all, err := store.TopN(ctx, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected 5, got %d", len(all))
	}

	for _, n := range []int{0, -3} {
		if _, err := store.TopN(ctx, n); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("n=%d: expected ErrInvalidLimit, got %v", n, err)
		}
	}
}

func TestSnapshotStore_ReplaceDoesNotRetainInput(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	in := fixture()
	store.Replace(ctx, "run", time.Now(), in)

	in[1].Classification.RevenueAtRisk = 0
	in[1].Record.AccountID = "mutated"

	r, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Classification.RevenueAtRisk != 600 {
		t.Errorf("snapshot changed with its input: %+v", r)
	}
}

func TestSnapshotStore_ConcurrentReplaceAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	store.Replace(ctx, "run-0", time.Now(), fixture())

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				store.Replace(ctx, fmt.Sprintf("run-%d-%d", w, i), time.Now(), fixture())
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap, err := store.Current(ctx)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if snap.Len() != 5 {
					t.Errorf("torn snapshot with %d accounts", snap.Len())
					return
				}
			}
		}()
	}
	wg.Wait()
}
