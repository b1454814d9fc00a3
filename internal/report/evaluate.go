package report

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/churnlens/internal/adapters/loader"
	"github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/portfolio"
)

// Evaluate loads path and classifies every record with engine, ranking the
// result the same way the service does.
func Evaluate(ctx context.Context, path string, engine *classify.Engine, strict bool) (*Evaluation, error) {
	if engine == nil {
		engine = classify.NewEngine()
	}

	ds, err := loader.LoadFile(ctx, path, loader.WithStrict(strict))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if len(ds.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoAccounts)
	}

	accounts := make([]model.ClassifiedAccount, len(ds.Records))
	for i, rec := range ds.Records {
		accounts[i] = model.ClassifiedAccount{Record: rec, Classification: engine.Classify(rec)}
	}

	now := time.Now().UTC()
	snap := repository.NewSnapshotStore().Replace(ctx, "local", now, accounts)

	return &Evaluation{
		Source:      path,
		Strategy:    string(engine.Strategy()),
		EvaluatedAt: now,
		Accounts:    snap.Accounts,
		KPIs:        portfolio.Aggregate(accounts),
		Summary:     portfolio.Summarize(accounts),
		Rejected:    ds.Rejected,
		Duplicates:  ds.Duplicates,
	}, nil
}
