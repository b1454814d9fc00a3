package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/churnlens/internal/adapters/http/api"
	"github.com/okian/churnlens/internal/adapters/loader"
	service "github.com/okian/churnlens/internal/app"
	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/types"
	"github.com/okian/churnlens/internal/report"
	"github.com/okian/churnlens/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const accountsCSV = `account_id,arr,usage_trend,decline_flag,ticket_stress,renewal_flag
acc-churn,100000,1.0,YES,HIGH,NO
acc-renew,40000,3.0,NO,LOW,YES
acc-growth,60000,4.0,NO,LOW,NO
acc-low,20000,1.5,NO,MEDIUM,NO
acc-maybe,5000,,MAYBE,LOW,NO
acc-decline,30000,2.0,YES,LOW,NO
acc-care,10000,3.0,NEEDS_REVIEW,HIGH,NO
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func ids(ev *report.Evaluation) []string {
	out := make([]string, len(ev.Accounts))
	for i, a := range ev.Accounts {
		out[i] = a.Record.AccountID
	}
	return out
}

func TestEvaluate(t *testing.T) {
	ev, err := report.Evaluate(context.Background(), writeCSV(t, accountsCSV), classify.NewEngine(), true)
	require.NoError(t, err)

	assert.Equal(t, "cascade", ev.Strategy)
	assert.Equal(t, []string{"acc-churn", "acc-decline", "acc-renew", "acc-growth", "acc-low", "acc-care", "acc-maybe"}, ids(ev))
	assert.Equal(t, 1, ev.Accounts[0].Rank)
	assert.Equal(t, 7, ev.Accounts[6].Rank)

	assert.Equal(t, 7, ev.KPIs.Accounts)
	assert.InDelta(t, 265_000, ev.KPIs.TotalARR, 1e-6)
	assert.InDelta(t, 86_500, ev.KPIs.TotalRevenueAtRisk, 1e-6)
	assert.Equal(t, 1, ev.KPIs.ChurnRiskAccounts())
	assert.Equal(t, 1, ev.Summary.AnomalousAccounts)

	assert.Len(t, ev.Top(3), 3)
	assert.Len(t, ev.Top(50), 7)
	assert.Len(t, ev.Top(-1), 7)
}

func TestEvaluate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := report.Evaluate(ctx, filepath.Join(t.TempDir(), "nope.csv"), nil, true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("header only", func(t *testing.T) {
		_, err := report.Evaluate(ctx, writeCSV(t, "account_id,arr,usage_trend,decline_flag,ticket_stress,renewal_flag\n"), nil, true)
		assert.ErrorIs(t, err, report.ErrNoAccounts)
	})

	bad := accountsCSV + "acc-bad,lots,1.0,NO,LOW,NO\n"

	t.Run("strict load rejects a malformed row", func(t *testing.T) {
		_, err := report.Evaluate(ctx, writeCSV(t, bad), nil, true)
		assert.ErrorIs(t, err, loader.ErrMalformedRecord)
	})

	t.Run("lenient load reports it", func(t *testing.T) {
		ev, err := report.Evaluate(ctx, writeCSV(t, bad), nil, false)
		require.NoError(t, err)
		assert.Len(t, ev.Accounts, 7)
		require.Len(t, ev.Rejected, 1)
		assert.Equal(t, 9, ev.Rejected[0].Line)
	})
}

func TestRenderMarkdown(t *testing.T) {
	ev, err := report.Evaluate(context.Background(), writeCSV(t, accountsCSV+"acc-churn,1000,1.0,NO,LOW,NO\n"), nil, true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.RenderMarkdown(&buf, ev, 3))
	md := buf.String()

	assert.True(t, strings.HasPrefix(md, "# Revenue Risk Report"))
	assert.Contains(t, md, "| 8 | $266,000 | $86,600 |")
	assert.Contains(t, md, "## Top 3 accounts at risk")
	assert.Contains(t, md, "| 1 | acc-churn | $100,000 | Churn Risk 🔴 | $60,000 | 🔥 Exec Alignment + Recovery Plan |")
	assert.Contains(t, md, "| 3 | acc-renew | $40,000 | Renewal Risk ⏳ | $8,000 | Renewal Engagement Strategy |")
	assert.NotContains(t, md, "acc-growth |")
	assert.Contains(t, md, "| Stable Accounts ✅ | 1 | Monitor |")
	assert.Contains(t, md, "| Low Engagement Risk 🟡 | 2 | Proactive Engagement Recommended |")
	assert.Contains(t, md, "## Data quality")
	assert.Contains(t, md, "- Duplicate account acc-churn on 2 rows (lines 2, 9)")
	assert.Contains(t, md, `- acc-maybe: decline_flag="MAYBE"`)
}

func TestRenderMarkdown_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, report.RenderMarkdown(&buf, nil, 5), report.ErrNoAccounts)
	assert.ErrorIs(t, report.RenderMarkdown(&buf, &report.Evaluation{}, 5), report.ErrNoAccounts)
}

func TestRunFile(t *testing.T) {
	ctx := context.Background()
	data := writeCSV(t, accountsCSV)

	t.Run("writes markdown to a nested path and prints a summary", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "reports", "weekly", "report.md")
		var term bytes.Buffer
		cfg := &report.Config{DataPath: data, OutPath: out, Top: 5, Strict: true}

		require.NoError(t, report.RunFile(ctx, cfg, classify.NewEngine(), &term))

		md, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(md), "## Top 5 accounts at risk")
		assert.Contains(t, term.String(), "Revenue Risk Summary")
		assert.Contains(t, term.String(), "acc-churn")
		assert.Contains(t, term.String(), "$86,500")
	})

	t.Run("writes markdown to the terminal without an output path", func(t *testing.T) {
		var term bytes.Buffer
		cfg := &report.Config{DataPath: data, Strict: true}

		require.NoError(t, report.RunFile(ctx, cfg, nil, &term))
		assert.Contains(t, term.String(), "## Top 7 accounts at risk")
	})
}

func TestRenderSummary_AxesStrategy(t *testing.T) {
	engine := classify.NewEngine(classify.WithStrategy(classify.StrategyAxes))
	ev, err := report.Evaluate(context.Background(), writeCSV(t, accountsCSV), engine, true)
	require.NoError(t, err)

	s := report.RenderSummary(ev, 2)
	assert.Contains(t, s, "acc-churn")
	assert.Contains(t, s, model.ActionExecRecoveryPlan.Label())
	assert.Contains(t, s, "1 accounts with unknown values")
	assert.Empty(t, report.RenderSummary(nil, 2))
}

func startService(t *testing.T, path string) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	svc := service.New(service.WithDataPath(path))
	require.NoError(t, svc.Start(ctx))
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, svc.MaxLimit()).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify_AgainstService(t *testing.T) {
	ctx := context.Background()
	path := writeCSV(t, accountsCSV)
	srv := startService(t, path)

	ev, err := report.Evaluate(ctx, path, classify.NewEngine(), true)
	require.NoError(t, err)

	v, err := report.Verify(ctx, report.NewHTTPClient(srv.URL+"/", time.Second), ev, 5)
	require.NoError(t, err)
	assert.True(t, v.Passed(), "failed checks: %+v", v.Failed())
	assert.Len(t, v.Checks, 8)
	assert.Contains(t, report.RenderVerification(v), "8 checks passed")

	t.Run("a different engine disagrees", func(t *testing.T) {
		axes := classify.NewEngine(classify.WithStrategy(classify.StrategyAxes))
		var term bytes.Buffer
		cfg := &report.Config{BaseURL: srv.URL, DataPath: path, Top: 5, Timeout: time.Second, Strict: true}

		err := report.RunVerify(ctx, cfg, axes, &term)
		assert.ErrorIs(t, err, report.ErrVerificationFailed)
		assert.Contains(t, term.String(), "total revenue at risk")
	})
}

func TestVerify_TamperedService(t *testing.T) {
	ctx := context.Background()
	path := writeCSV(t, accountsCSV)
	ev, err := report.Evaluate(ctx, path, nil, true)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics\n")) })
	mux.HandleFunc("/portfolio", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(types.PortfolioView{KPIs: types.KPIs{
			Accounts:            7,
			TotalARR:            265_000,
			TotalRevenueAtRisk:  1,
			CountByCategory:     map[model.Category]int{model.CategoryChurnRisk: 7},
			ChurnRiskAccounts:   7,
			GrowthOpportunities: 1,
		}})
	})
	mux.HandleFunc("/at-risk", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]types.AccountEntry{{Rank: 1, AccountID: "someone-else"}})
	})
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(types.AccountDetail{AccountID: "acc-churn", Rule: "decline_and_high_stress",
			ChurnRisk: model.LevelHigh, UsageRisk: model.LevelHigh, GrowthOpportunity: model.LevelLow})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v, err := report.Verify(ctx, report.NewHTTPClient(srv.URL, time.Second), ev, 1)
	require.NoError(t, err)
	assert.False(t, v.Passed())

	failed := map[string]bool{}
	for _, c := range v.Failed() {
		failed[c.Name] = true
	}
	assert.Equal(t, map[string]bool{
		"total revenue at risk": true,
		"churn-risk accounts":   true,
		"category distribution": true,
		"top 1 at risk":         true,
	}, failed)
	assert.Contains(t, report.RenderVerification(v), "4 of 8 checks failed")
}

func TestVerify_ServiceErrors(t *testing.T) {
	ctx := context.Background()
	ev, err := report.Evaluate(ctx, writeCSV(t, accountsCSV), nil, true)
	require.NoError(t, err)

	t.Run("unhealthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := report.Verify(ctx, report.NewHTTPClient(srv.URL, time.Second), ev, 3)
		assert.ErrorIs(t, err, report.ErrUnexpectedStatus)
	})

	t.Run("portfolio not ready", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {})
		mux.HandleFunc("/portfolio", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"code":"not_ready"}`, http.StatusServiceUnavailable)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		_, err := report.Verify(ctx, report.NewHTTPClient(srv.URL, time.Second), ev, 3)
		assert.ErrorIs(t, err, report.ErrUnexpectedStatus)
		assert.Contains(t, err.Error(), "not_ready")
	})

	t.Run("nothing to verify", func(t *testing.T) {
		_, err := report.Verify(ctx, report.NewHTTPClient("http://127.0.0.1:0", time.Second), &report.Evaluation{}, 3)
		assert.ErrorIs(t, err, report.ErrNoAccounts)
	})
}
