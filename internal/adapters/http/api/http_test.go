package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/churnlens/internal/adapters/http/api"
	repository "github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/types"
	"github.com/okian/churnlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies records the queries it receives and answers from fixtures.
type mockDependencies struct {
	view      types.PortfolioView
	rows      []types.AccountEntry
	detail    types.AccountDetail
	run       types.RunInfo
	err       error
	reloadErr error

	lastQuery types.AccountQuery
	lastN     int
	reloads   int
}

func (m *mockDependencies) Portfolio(context.Context) (types.PortfolioView, error) {
	if m.err != nil {
		return types.PortfolioView{}, m.err
	}
	return m.view, nil
}

func (m *mockDependencies) Accounts(_ context.Context, q types.AccountQuery) ([]types.AccountEntry, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockDependencies) Account(_ context.Context, id string) (types.AccountDetail, error) {
	if m.err != nil {
		return types.AccountDetail{}, m.err
	}
	if id != m.detail.AccountID {
		return types.AccountDetail{}, fmt.Errorf("%w: %q", repository.ErrNotFound, id)
	}
	return m.detail, nil
}

func (m *mockDependencies) TopAtRisk(_ context.Context, n int) ([]types.AccountEntry, error) {
	m.lastN = n
	if m.err != nil {
		return nil, m.err
	}
	if n > len(m.rows) {
		return m.rows, nil
	}
	return m.rows[:n], nil
}

func (m *mockDependencies) Reload(context.Context) (types.RunInfo, error) {
	m.reloads++
	if m.reloadErr != nil {
		return types.RunInfo{}, m.reloadErr
	}
	return m.run, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newDeps() *mockDependencies {
	return &mockDependencies{
		view: types.PortfolioView{
			KPIs: types.KPIs{
				Accounts:           2,
				TotalARR:           140000,
				TotalRevenueAtRisk: 64000,
				ChurnRiskAccounts:  1,
				CountByCategory: map[model.Category]int{
					model.CategoryChurnRisk:   1,
					model.CategoryRenewalRisk: 1,
				},
			},
			Run: types.RunInfo{RunID: "run-1", Strategy: "cascade"},
		},
		rows: []types.AccountEntry{
			{Rank: 1, AccountID: "acc-1", ARR: 100000, Category: model.CategoryChurnRisk, RevenueAtRisk: 60000, RecommendedAction: model.ActionExecRecoveryPlan},
			{Rank: 2, AccountID: "acc-2", ARR: 40000, Category: model.CategoryRenewalRisk, RevenueAtRisk: 8000, RecommendedAction: model.ActionRenewalEngagement},
		},
		detail: types.AccountDetail{Rank: 1, AccountID: "acc-1", Category: model.CategoryChurnRisk, Rule: "decline_and_high_stress"},
		run:    types.RunInfo{RunID: "run-2"},
	}
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := newDeps()
		statsProvider := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		server := api.NewServer(deps, statsProvider, 50)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)

		Convey("When calling the health endpoint", func() {
			w := serve(mux, "GET", "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When calling the stats endpoint", func() {
			w := serve(mux, "GET", "/stats")

			Convey("Then it merges provider stats with uptime", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["started"], ShouldEqual, true)
				So(body, ShouldContainKey, "uptime")
			})
		})

		Convey("When calling the portfolio endpoint", func() {
			w := serve(mux, "GET", "/portfolio")

			Convey("Then it returns the KPI tiles", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var view types.PortfolioView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.KPIs.TotalRevenueAtRisk, ShouldEqual, 64000)
				So(view.KPIs.CountByCategory[model.CategoryChurnRisk], ShouldEqual, 1)
				So(view.Run.RunID, ShouldEqual, "run-1")
			})
		})

		Convey("When nothing has been evaluated yet", func() {
			deps.err = fmt.Errorf("not ready: %w", repository.ErrNoSnapshot)

			Convey("Then reads answer 503", func() {
				w := serve(mux, "GET", "/portfolio")
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(errorCode(w), ShouldEqual, "not_ready")
				So(serve(mux, "GET", "/accounts").Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When an upstream call fails unexpectedly", func() {
			deps.err = errors.New("boom")
			w := serve(mux, "GET", "/at-risk")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "internal_error")
		})

		Convey("When using the wrong method", func() {
			So(serve(mux, "POST", "/portfolio").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, "GET", "/reload").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, "DELETE", "/accounts/acc-1").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the route is unknown", func() {
			So(serve(mux, "GET", "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When calling the dashboard endpoint", func() {
			w := serve(mux, "GET", "/dashboard")

			Convey("Then it serves the HTML page with its controls", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := w.Body.String()
				So(body, ShouldContainSubstring, "id=\"refresh-interval\"")
				So(body, ShouldContainSubstring, "id=\"refresh-control\"")
				So(body, ShouldContainSubstring, "id=\"category\"")
				So(body, ShouldContainSubstring, "Revenue at Risk")
			})
		})
	})
}

func TestAccountsHandler(t *testing.T) {
	Convey("Given the accounts endpoints", t, func() {
		deps := newDeps()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}, 50).Register(context.Background(), mux)

		Convey("When listing without parameters", func() {
			w := serve(mux, "GET", "/accounts")

			Convey("Then every row comes back with the max limit applied", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rows []types.AccountEntry
				So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].AccountID, ShouldEqual, "acc-1")
				So(deps.lastQuery, ShouldResemble, types.AccountQuery{Limit: 50})
			})
		})

		Convey("When filtering by category, action and limit", func() {
			w := serve(mux, "GET", "/accounts?category=Churn%20Risk&action=exec_recovery_plan&limit=5")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastQuery, ShouldResemble, types.AccountQuery{
				Category: "Churn Risk",
				Action:   "exec_recovery_plan",
				Limit:    5,
			})
		})

		Convey("When the category lens is set to all", func() {
			w := serve(mux, "GET", "/accounts?category=All")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastQuery.Category, ShouldBeEmpty)
		})

		Convey("When the parameters are invalid", func() {
			cases := map[string]string{
				"/accounts?category=doomed": "bad_request",
				"/accounts?action=panic":    "bad_request",
				"/accounts?limit=abc":       "bad_request",
				"/accounts?limit=0":         "bad_request",
				"/accounts?limit=51":        "limit_exceeded",
			}
			for target, code := range cases {
				w := serve(mux, "GET", target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, code)
			}
		})

		Convey("When fetching one account", func() {
			w := serve(mux, "GET", "/accounts/acc-1")

			Convey("Then the detail is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var d types.AccountDetail
				So(json.Unmarshal(w.Body.Bytes(), &d), ShouldBeNil)
				So(d.Rule, ShouldEqual, "decline_and_high_stress")
			})

			Convey("Then unknown ids are 404", func() {
				w := serve(mux, "GET", "/accounts/acc-404")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})

			Convey("Then empty or nested ids are 400", func() {
				So(serve(mux, "GET", "/accounts/").Code, ShouldEqual, http.StatusBadRequest)
				So(serve(mux, "GET", "/accounts/a/b").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAtRiskHandler(t *testing.T) {
	Convey("Given the at-risk endpoint", t, func() {
		deps := newDeps()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}, 50).Register(context.Background(), mux)

		Convey("When no limit is given", func() {
			w := serve(mux, "GET", "/at-risk")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastN, ShouldEqual, 10)
		})

		Convey("When a limit is given", func() {
			w := serve(mux, "GET", "/at-risk?limit=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			var rows []types.AccountEntry
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].RevenueAtRisk, ShouldEqual, 60000)
		})

		Convey("When the limit is above the cap", func() {
			w := serve(mux, "GET", "/at-risk?limit=1000")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
			So(deps.lastN, ShouldEqual, 0)
		})
	})
}

func TestCategoriesHandler(t *testing.T) {
	Convey("Given the categories endpoint", t, func() {
		mux := http.NewServeMux()
		api.NewServer(newDeps(), &mockStatsProvider{}, 50).Register(context.Background(), mux)
		w := serve(mux, "GET", "/categories")

		Convey("Then every category is listed with its label, tone and action", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Categories []types.CategoryInfo `json:"categories"`
				Actions    []types.CategoryInfo `json:"actions"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Categories, ShouldHaveLength, len(model.Categories()))
			So(body.Actions, ShouldHaveLength, len(model.Actions()))
			So(body.Categories[0], ShouldResemble, types.CategoryInfo{
				Value:  "CHURN_RISK",
				Label:  "Churn Risk 🔴",
				Tone:   "error",
				Action: "EXEC_RECOVERY_PLAN",
			})
			last := body.Categories[len(body.Categories)-1]
			So(last.Value, ShouldEqual, "STABLE")
			So(last.Action, ShouldEqual, "MONITOR")
		})
	})
}

func TestReloadHandler(t *testing.T) {
	Convey("Given the reload endpoint", t, func() {
		deps := newDeps()
		mux := http.NewServeMux()
		api.NewServer(deps, &mockStatsProvider{}, 50).Register(context.Background(), mux)

		Convey("When a reload succeeds", func() {
			w := serve(mux, "POST", "/reload")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "run-2")
			So(deps.reloads, ShouldEqual, 1)
		})

		Convey("When a reload fails", func() {
			deps.reloadErr = errors.New("malformed record at line 3")
			w := serve(mux, "POST", "/reload")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(w), ShouldEqual, "reload_failed")
			So(w.Body.String(), ShouldContainSubstring, "line 3")
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given operation-tagged errors", t, func() {
		cause := errors.New("disk")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: disk")
		})

		Convey("Then bare kinds and bare causes render cleanly", func() {
			So(api.NewKind("api.op", api.ErrReload).Error(), ShouldEqual, "api.op: reload failed")
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: disk")
			So(strings.HasPrefix(api.Wrap("x", cause).Error(), "x: "), ShouldBeTrue)
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped by the metrics middleware", t, func() {
		status := http.StatusOK
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("body"))
		}, "portfolio")

		for _, code := range []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable, http.StatusInternalServerError} {
			Convey(fmt.Sprintf("When the handler answers %d", code), func() {
				status = code
				w := httptest.NewRecorder()
				h(w, httptest.NewRequest(http.MethodGet, "/portfolio", nil))

				Convey("Then the first status and the body pass through", func() {
					So(w.Code, ShouldEqual, code)
					So(w.Body.String(), ShouldEqual, "body")
				})
			})
		}
	})
}
