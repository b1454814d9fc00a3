package classify_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/rules"
	"github.com/okian/churnlens/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngine_Scenarios(t *testing.T) {
	Convey("Given the default engine", t, func() {
		engine := classify.NewEngine()

		Convey("When an account declines under high ticket stress", func() {
			c := engine.Classify(model.AccountRecord{
				AccountID: "acc-1", ARR: 100_000,
				Decline: model.DeclineYes, TicketStress: model.StressHigh, Renewal: model.RenewalNo,
			})

			Convey("Then it is churn risk with 60% at risk", func() {
				So(c.Category, ShouldEqual, model.CategoryChurnRisk)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 60_000, 1e-6)
				So(c.RecommendedAction, ShouldEqual, model.ActionExecRecoveryPlan)
				So(c.Rule, ShouldEqual, "decline_and_high_stress")
			})
		})

		Convey("When an account is only up for renewal", func() {
			c := engine.Classify(model.AccountRecord{
				AccountID: "acc-2", ARR: 40_000,
				Decline: model.DeclineNo, TicketStress: model.StressLow, Renewal: model.RenewalYes,
			})

			Convey("Then it is renewal risk with 20% at risk", func() {
				So(c.Category, ShouldEqual, model.CategoryRenewalRisk)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 8_000, 1e-6)
				So(c.RecommendedAction, ShouldEqual, model.ActionRenewalEngagement)
			})
		})

		Convey("When a large account is steady", func() {
			c := engine.Classify(model.AccountRecord{
				AccountID: "acc-3", ARR: 60_000, UsageTrend: model.Float(5.0),
				Decline: model.DeclineNo, TicketStress: model.StressLow, Renewal: model.RenewalNo,
			})

			Convey("Then it is a growth opportunity with the baseline at risk", func() {
				So(c.Category, ShouldEqual, model.CategoryGrowthOpportunity)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 6_000, 1e-6)
				So(c.RecommendedAction, ShouldEqual, model.ActionExpansionUpsell)
			})
		})

		Convey("When a small account barely uses the product", func() {
			c := engine.Classify(model.AccountRecord{
				AccountID: "acc-4", ARR: 10_000, UsageTrend: model.Float(1.0),
				Decline: model.DeclineNo, TicketStress: model.StressLow, Renewal: model.RenewalNo,
			})

			Convey("Then it is low engagement risk", func() {
				So(c.Category, ShouldEqual, model.CategoryLowEngagementRisk)
				So(c.RecommendedAction, ShouldEqual, model.ActionProactiveEngagement)
			})
		})

		Convey("When the decline flag holds an unknown value", func() {
			c := engine.Classify(model.AccountRecord{
				AccountID: "acc-5", ARR: 10_000, UsageTrend: model.Float(1.0),
				Decline: model.ParseDecline("MAYBE"), TicketStress: model.StressLow, Renewal: model.RenewalNo,
			})

			Convey("Then it falls through to stable", func() {
				So(c.Category, ShouldEqual, model.CategoryStable)
				So(c.RecommendedAction, ShouldEqual, model.ActionMonitor)
				So(c.Rule, ShouldEqual, rules.DefaultRule)
			})

			Convey("And the fallback is flagged", func() {
				So(c.Anomalies, ShouldResemble, []model.Anomaly{{Field: classify.FieldDecline, Value: "MAYBE"}})
			})
		})

		Convey("When every enumeration holds garbage", func() {
			c := engine.Classify(model.AccountRecord{AccountID: "acc-6", ARR: 5_000, Decline: "?", TicketStress: "??", Renewal: "???"})

			Convey("Then the least severe branches are taken", func() {
				So(c.Category, ShouldEqual, model.CategoryStable)
				So(c.ChurnRisk, ShouldEqual, model.LevelLow)
				So(c.UsageRisk, ShouldEqual, model.LevelLow)
				So(c.GrowthOpportunity, ShouldEqual, model.LevelLow)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 500, 1e-6)
				So(len(c.Anomalies), ShouldEqual, 3)
			})
		})

		Convey("When the record is fully known", func() {
			c := engine.Classify(model.AccountRecord{AccountID: "acc-7", Decline: model.DeclineNo, TicketStress: model.StressMedium, Renewal: model.RenewalNo})
			So(c.Anomalies, ShouldBeEmpty)
		})
	})
}

func TestEngine_AxesStrategy(t *testing.T) {
	Convey("Given an engine using the axis strategy", t, func() {
		engine := classify.NewEngine(classify.WithStrategy(classify.StrategyAxes))
		So(engine.Strategy(), ShouldEqual, classify.StrategyAxes)

		Convey("When the account declines under high stress", func() {
			c := engine.Classify(model.AccountRecord{ARR: 100_000, Decline: model.DeclineYes, TicketStress: model.StressHigh, Renewal: model.RenewalNo})

			Convey("Then churn drives action and revenue", func() {
				So(c.ChurnRisk, ShouldEqual, model.LevelHigh)
				So(c.RecommendedAction, ShouldEqual, model.ActionExecRecoveryPlan)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 60_000, 1e-6)
				So(c.Category, ShouldEqual, model.CategoryChurnRisk)
			})
		})

		Convey("When only ticket stress is high", func() {
			c := engine.Classify(model.AccountRecord{ARR: 20_000, Decline: model.DeclineNo, TicketStress: model.StressHigh, Renewal: model.RenewalNo})

			Convey("Then support stabilization is recommended", func() {
				So(c.RecommendedAction, ShouldEqual, model.ActionSupportStabilization)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 2_000, 1e-6)
			})
		})

		Convey("When the account is renewing", func() {
			c := engine.Classify(model.AccountRecord{ARR: 20_000, Decline: model.DeclineNo, TicketStress: model.StressLow, Renewal: model.RenewalYes})

			Convey("Then the medium churn coefficient applies", func() {
				So(c.ChurnRisk, ShouldEqual, model.LevelMedium)
				So(c.RevenueAtRisk, ShouldAlmostEqual, 6_000, 1e-6)
				So(c.RecommendedAction, ShouldEqual, model.ActionMonitor)
			})
		})
	})
}

func TestEngine_Options(t *testing.T) {
	Convey("Given custom tables and coefficients", t, func() {
		engine := classify.NewEngine(
			classify.WithRules(rules.New(rules.WithThresholds(rules.Thresholds{GrowthARR: 1_000_000}))),
			classify.WithEstimator(scoring.NewEstimator(scoring.WithCoefficients(scoring.Coefficients{High: 0.9, Medium: 0.5, Renewal: 0.3, Baseline: 0}))),
			classify.WithRules(nil),
			classify.WithEstimator(nil),
		)

		Convey("Then they are used for classification", func() {
			c := engine.Classify(model.AccountRecord{ARR: 60_000, UsageTrend: model.Float(5), Decline: model.DeclineNo, TicketStress: model.StressLow, Renewal: model.RenewalNo})
			So(c.Category, ShouldEqual, model.CategoryStable)
			So(c.RevenueAtRisk, ShouldEqual, 0)
			So(engine.Rules().Thresholds().GrowthARR, ShouldEqual, 1_000_000)
		})
	})

	Convey("Given strategy names", t, func() {
		s, err := classify.ParseStrategy("")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, classify.StrategyCascade)

		s, err = classify.ParseStrategy("AXES")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, classify.StrategyAxes)

		_, err = classify.ParseStrategy("random")
		So(errors.Is(err, classify.ErrUnknownStrategy), ShouldBeTrue)
	})
}

func randomRecord(rng *rand.Rand) model.AccountRecord {
	declines := []model.DeclineFlag{model.DeclineYes, model.DeclineNo, model.DeclineNeedsReview, "MAYBE"}
	stresses := []model.StressLevel{model.StressLow, model.StressMedium, model.StressHigh, "UNKNOWN"}
	renewals := []model.RenewalFlag{model.RenewalYes, model.RenewalNo, ""}
	rec := model.AccountRecord{
		AccountID:    "acc",
		ARR:          rng.Float64() * 200_000,
		Decline:      declines[rng.Intn(len(declines))],
		TicketStress: stresses[rng.Intn(len(stresses))],
		Renewal:      renewals[rng.Intn(len(renewals))],
	}
	if rng.Intn(4) > 0 {
		rec.UsageTrend = model.Float(rng.Float64() * 6)
	}
	return rec
}

func TestEngine_Properties(t *testing.T) {
	Convey("Given many random records", t, func() {
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic seed for reproducible testing
		engines := []*classify.Engine{
			classify.NewEngine(),
			classify.NewEngine(classify.WithStrategy(classify.StrategyAxes)),
		}

		Convey("Then revenue at risk stays within [0, arr]", func() {
			for i := 0; i < 2_000; i++ {
				rec := randomRecord(rng)
				for _, e := range engines {
					c := e.Classify(rec)
					So(c.RevenueAtRisk, ShouldBeGreaterThanOrEqualTo, 0)
					So(c.RevenueAtRisk, ShouldBeLessThanOrEqualTo, rec.ARR)
				}
			}
		})

		Convey("Then decline with high stress is always churn risk", func() {
			for i := 0; i < 500; i++ {
				rec := randomRecord(rng)
				rec.Decline = model.DeclineYes
				rec.TicketStress = model.StressHigh
				So(engines[0].Classify(rec).Category, ShouldEqual, model.CategoryChurnRisk)
			}
		})

		Convey("Then classification is deterministic", func() {
			for i := 0; i < 500; i++ {
				rec := randomRecord(rng)
				for _, e := range engines {
					So(e.Classify(rec), ShouldResemble, e.Classify(rec))
				}
			}
		})

		Convey("Then every category and action is a known value", func() {
			known := map[model.Action]bool{}
			for _, a := range model.Actions() {
				known[a] = true
			}
			for i := 0; i < 500; i++ {
				c := engines[i%2].Classify(randomRecord(rng))
				So(c.Category.Known(), ShouldBeTrue)
				So(known[c.RecommendedAction], ShouldBeTrue)
			}
		})
	})
}
