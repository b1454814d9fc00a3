package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	repository "github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/types"
	"github.com/okian/churnlens/pkg/metrics"
)

// Portfolio returns the KPI tiles, the distribution summary and the run that
// produced them.
func (s *Service) Portfolio(_ context.Context) (types.PortfolioView, error) {
	ev := s.current.Load()
	if ev == nil {
		return types.PortfolioView{}, fmt.Errorf("%w: %w", ErrNotReady, repository.ErrNoSnapshot)
	}
	return types.PortfolioView{
		KPIs:         kpis(ev.kpis),
		Distribution: distribution(ev),
		Run:          ev.run,
	}, nil
}

// Accounts returns the ranked account table narrowed by q.
func (s *Service) Accounts(ctx context.Context, q types.AccountQuery) ([]types.AccountEntry, error) {
	f := repository.Filter{Limit: q.Limit}
	if q.Category != "" {
		f.Category = model.Category(model.Normalize(q.Category))
		if !f.Category.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, q.Category)
		}
	}
	if q.Action != "" {
		f.Action = model.Action(model.Normalize(q.Action))
		if !f.Action.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, q.Action)
		}
	}

	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, notReady(err)
	}
	return entries(rows), nil
}

// Account returns the recommendation panel of one account.
func (s *Service) Account(ctx context.Context, accountID string) (types.AccountDetail, error) {
	r, err := s.store.Get(ctx, accountID)
	if err != nil {
		return types.AccountDetail{}, notReady(err)
	}
	return detail(&r), nil
}

// TopAtRisk returns the n accounts with the highest revenue at risk.
func (s *Service) TopAtRisk(ctx context.Context, n int) ([]types.AccountEntry, error) {
	rows, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, notReady(err)
	}
	return entries(rows), nil
}

// MaxLimit returns the cap on table queries.
func (s *Service) MaxLimit() int { return s.maxLimit }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dataPath":          s.dataPath,
		"strictLoad":        s.strict,
		"strategy":          string(s.engine.Strategy()),
		"needsReviewPolicy": string(s.engine.Rules().Policy()),
		"reloadSchedule":    s.schedule,
		"reloads":           s.reloads.Load(),
		"reloadErrors":      s.reloadErrors.Load(),
		"accounts":          s.store.Count(ctx),
	}

	if ev := s.current.Load(); ev != nil {
		stats["runId"] = ev.run.RunID
		stats["evaluatedAt"] = ev.run.EvaluatedAt.Format(time.RFC3339)
		stats["lastDuration"] = ev.run.Duration
	}

	goroutines := runtime.NumGoroutine()
	stats["goroutines"] = goroutines
	metrics.UpdateSystemGoroutineCount(goroutines)

	return stats
}

// notReady marks the store's empty state with ErrNotReady.
func notReady(err error) error {
	if errors.Is(err, repository.ErrNoSnapshot) {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return err
}

func entries(rows []repository.Ranked) []types.AccountEntry {
	out := make([]types.AccountEntry, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = types.AccountEntry{
			Rank:              r.Rank,
			AccountID:         r.Record.AccountID,
			ARR:               r.Record.ARR,
			Category:          r.Classification.Category,
			RevenueAtRisk:     r.Classification.RevenueAtRisk,
			RecommendedAction: r.Classification.RecommendedAction,
		}
	}
	return out
}

func detail(r *repository.Ranked) types.AccountDetail {
	return types.AccountDetail{
		Rank:              r.Rank,
		AccountID:         r.Record.AccountID,
		ARR:               r.Record.ARR,
		UsageTrend:        r.Record.UsageTrend,
		DeclineFlag:       r.Record.Decline,
		TicketStress:      r.Record.TicketStress,
		RenewalFlag:       r.Record.Renewal,
		Category:          r.Classification.Category,
		ChurnRisk:         r.Classification.ChurnRisk,
		UsageRisk:         r.Classification.UsageRisk,
		GrowthOpportunity: r.Classification.GrowthOpportunity,
		RevenueAtRisk:     r.Classification.RevenueAtRisk,
		RecommendedAction: r.Classification.RecommendedAction,
		Rule:              r.Classification.Rule,
		Anomalies:         r.Classification.Anomalies,
	}
}

func kpis(k model.PortfolioKPIs) types.KPIs {
	return types.KPIs{
		Accounts:            k.Accounts,
		TotalARR:            k.TotalARR,
		TotalRevenueAtRisk:  k.TotalRevenueAtRisk,
		ChurnRiskAccounts:   k.ChurnRiskAccounts(),
		GrowthOpportunities: k.GrowthOpportunities(),
		CountByCategory:     k.CountByCategory,
	}
}

func distribution(ev *evaluation) types.Distribution {
	sm := ev.summary
	return types.Distribution{
		MeanARR:            sm.MeanARR,
		MedianARR:          sm.MedianARR,
		MeanRevenueAtRisk:  sm.MeanRevenueAtRisk,
		P90RevenueAtRisk:   sm.P90RevenueAtRisk,
		ExposureRatio:      sm.ExposureRatio,
		AccountsWithUsage:  sm.AccountsWithUsage,
		MeanUsageTrend:     sm.MeanUsageTrend,
		AnomalousAccounts:  sm.AnomalousAccounts,
		ActionsRecommended: sm.ActionsRecommended,
	}
}
