// Package portfolio reduces classified accounts into portfolio KPIs.
package portfolio

import (
	"sort"

	"github.com/okian/churnlens/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Aggregate sums ARR and revenue at risk and counts accounts per category.
// Empty input yields zero totals and an empty map.
func Aggregate(accounts []model.ClassifiedAccount) model.PortfolioKPIs {
	kpis := model.PortfolioKPIs{CountByCategory: make(map[model.Category]int)}
	for _, a := range accounts {
		kpis.TotalARR += a.Record.ARR
		kpis.TotalRevenueAtRisk += a.Classification.RevenueAtRisk
		kpis.CountByCategory[a.Classification.Category]++
		kpis.Accounts++
	}
	return kpis
}

// Merge adds two KPI values. Aggregate(A ++ B) == Merge(Aggregate(A), Aggregate(B)).
func Merge(a, b model.PortfolioKPIs) model.PortfolioKPIs {
	out := model.PortfolioKPIs{
		TotalARR:           a.TotalARR + b.TotalARR,
		TotalRevenueAtRisk: a.TotalRevenueAtRisk + b.TotalRevenueAtRisk,
		CountByCategory:    make(map[model.Category]int, len(a.CountByCategory)+len(b.CountByCategory)),
		Accounts:           a.Accounts + b.Accounts,
	}
	for c, n := range a.CountByCategory {
		out.CountByCategory[c] += n
	}
	for c, n := range b.CountByCategory {
		out.CountByCategory[c] += n
	}
	return out
}

// Summary describes how ARR and exposure are distributed across accounts.
type Summary struct {
	MeanARR            float64
	MedianARR          float64
	MeanRevenueAtRisk  float64
	P90RevenueAtRisk   float64
	ExposureRatio      float64 // total revenue at risk over total ARR
	AccountsWithUsage  int
	MeanUsageTrend     float64
	AnomalousAccounts  int
	ActionsRecommended map[model.Action]int
}

// Summarize computes distribution statistics. Empty input yields a zero Summary.
func Summarize(accounts []model.ClassifiedAccount) Summary {
	s := Summary{ActionsRecommended: make(map[model.Action]int)}
	if len(accounts) == 0 {
		return s
	}

	arr := make([]float64, 0, len(accounts))
	risk := make([]float64, 0, len(accounts))
	var usage []float64
	var totalARR, totalRisk float64
	for _, a := range accounts {
		arr = append(arr, a.Record.ARR)
		risk = append(risk, a.Classification.RevenueAtRisk)
		totalARR += a.Record.ARR
		totalRisk += a.Classification.RevenueAtRisk
		if u, ok := a.Record.Usage(); ok {
			usage = append(usage, u)
		}
		if len(a.Classification.Anomalies) > 0 {
			s.AnomalousAccounts++
		}
		s.ActionsRecommended[a.Classification.RecommendedAction]++
	}

	sort.Float64s(arr)
	sort.Float64s(risk)
	s.MeanARR = stat.Mean(arr, nil)
	s.MedianARR = stat.Quantile(0.5, stat.Empirical, arr, nil)
	s.MeanRevenueAtRisk = stat.Mean(risk, nil)
	s.P90RevenueAtRisk = stat.Quantile(0.9, stat.Empirical, risk, nil)
	if totalARR > 0 {
		s.ExposureRatio = totalRisk / totalARR
	}
	s.AccountsWithUsage = len(usage)
	if len(usage) > 0 {
		s.MeanUsageTrend = stat.Mean(usage, nil)
	}
	return s
}
