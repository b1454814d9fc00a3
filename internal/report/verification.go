package report

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/types"
	"github.com/okian/churnlens/pkg/logger"
)

// Verify compares the service behind client with the local evaluation ev.
// Transport failures are returned as errors; disagreements are recorded as
// failed checks.
func Verify(ctx context.Context, client *HTTPClient, ev *Evaluation, top int) (*Verification, error) {
	if ev == nil || len(ev.Accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if top < 1 {
		top = DefaultTop
	}

	start := time.Now()
	v := &Verification{BaseURL: client.baseURL}
	log := logger.Get().Named("report")

	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var view types.PortfolioView
	if err := client.GetJSON(ctx, "/portfolio", &view); err != nil {
		return nil, err
	}
	v.Checks = append(v.Checks, verifyPortfolio(ev, view)...)

	leaders := ev.Top(top)
	var remote []types.AccountEntry
	if err := client.GetJSON(ctx, "/at-risk?limit="+strconv.Itoa(len(leaders)), &remote); err != nil {
		return nil, err
	}
	v.Checks = append(v.Checks, verifyLeaders(ev, remote, len(leaders)))

	if len(leaders) > 0 {
		first := leaders[0]
		var d types.AccountDetail
		if err := client.GetJSON(ctx, "/accounts/"+url.PathEscape(first.Record.AccountID), &d); err != nil {
			return nil, err
		}
		v.Checks = append(v.Checks, verifyDetail(first.Record.AccountID, first.Classification, d))
	}

	v.Duration = time.Since(start)
	log.Info(ctx, "verification completed",
		logger.String("baseURL", v.BaseURL),
		logger.Int("checks", len(v.Checks)),
		logger.Int("failed", len(v.Failed())),
		logger.Duration("duration", v.Duration))
	return v, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	// Any 200 is healthy; the body is Prometheus exposition text.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func verifyPortfolio(ev *Evaluation, view types.PortfolioView) []Check {
	checks := []Check{
		intCheck("account count", ev.KPIs.Accounts, view.KPIs.Accounts),
		moneyCheck("total ARR", ev.KPIs.TotalARR, view.KPIs.TotalARR),
		moneyCheck("total revenue at risk", ev.KPIs.TotalRevenueAtRisk, view.KPIs.TotalRevenueAtRisk),
		intCheck("churn-risk accounts", ev.KPIs.ChurnRiskAccounts(), view.KPIs.ChurnRiskAccounts),
		intCheck("growth opportunities", ev.KPIs.GrowthOpportunities(), view.KPIs.GrowthOpportunities),
	}

	mismatch := ""
	for _, c := range model.Categories() {
		if got, want := view.KPIs.CountByCategory[c], ev.KPIs.CountByCategory[c]; got != want {
			mismatch = fmt.Sprintf("%s: local %d, service %d", c, want, got)
			break
		}
	}
	checks = append(checks, Check{Name: "category distribution", OK: mismatch == "", Detail: mismatch})
	return checks
}

func verifyLeaders(ev *Evaluation, remote []types.AccountEntry, n int) Check {
	name := fmt.Sprintf("top %d at risk", n)
	if len(remote) != n {
		return Check{Name: name, Detail: fmt.Sprintf("expected %d rows, got %d", n, len(remote))}
	}

	local := ev.Top(n)
	for i := range local {
		l, r := local[i], remote[i]
		switch {
		case l.Record.AccountID != r.AccountID:
			return Check{Name: name, Detail: fmt.Sprintf("row %d: local %s, service %s", i+1, l.Record.AccountID, r.AccountID)}
		case l.Rank != r.Rank:
			return Check{Name: name, Detail: fmt.Sprintf("%s: local rank %d, service rank %d", r.AccountID, l.Rank, r.Rank)}
		case l.Classification.Category != r.Category:
			return Check{Name: name, Detail: fmt.Sprintf("%s: local %s, service %s", r.AccountID, l.Classification.Category, r.Category)}
		case l.Classification.RecommendedAction != r.RecommendedAction:
			return Check{Name: name, Detail: fmt.Sprintf("%s: local %s, service %s", r.AccountID, l.Classification.RecommendedAction, r.RecommendedAction)}
		case !closeEnough(l.Classification.RevenueAtRisk, r.RevenueAtRisk):
			return Check{Name: name, Detail: fmt.Sprintf("%s: local %s, service %s", r.AccountID, money(l.Classification.RevenueAtRisk), money(r.RevenueAtRisk))}
		}
	}
	return Check{Name: name, OK: true}
}

func verifyDetail(id string, c model.Classification, d types.AccountDetail) Check { //nolint:gocritic // hugeParam: read only
	name := "detail " + id
	switch {
	case d.ChurnRisk != c.ChurnRisk || d.UsageRisk != c.UsageRisk || d.GrowthOpportunity != c.GrowthOpportunity:
		return Check{Name: name, Detail: fmt.Sprintf("sub-scores local %s/%s/%s, service %s/%s/%s",
			c.ChurnRisk, c.UsageRisk, c.GrowthOpportunity, d.ChurnRisk, d.UsageRisk, d.GrowthOpportunity)}
	case d.Rule != c.Rule:
		return Check{Name: name, Detail: fmt.Sprintf("local rule %s, service rule %s", c.Rule, d.Rule)}
	}
	return Check{Name: name, OK: true}
}

func intCheck(name string, local, remote int) Check {
	if local == remote {
		return Check{Name: name, OK: true}
	}
	return Check{Name: name, Detail: fmt.Sprintf("local %d, service %d", local, remote)}
}

func moneyCheck(name string, local, remote float64) Check {
	if closeEnough(local, remote) {
		return Check{Name: name, OK: true}
	}
	return Check{Name: name, Detail: fmt.Sprintf("local %s, service %s", money(local), money(remote))}
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
