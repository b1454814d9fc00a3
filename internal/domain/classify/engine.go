// Package classify maps one account record to its Classification.
//
// The engine is pure: the same record and rule set always produce the same
// result and nothing is retained between calls.
package classify

import (
	"fmt"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/rules"
	"github.com/okian/churnlens/internal/domain/scoring"
)

// Strategy selects which rule shape drives the action and revenue lookup.
type Strategy string

// Strategies.
const (
	// StrategyCascade drives action and revenue from the single category.
	StrategyCascade Strategy = "cascade"
	// StrategyAxes drives them from the churn/usage/growth sub-scores.
	StrategyAxes Strategy = "axes"
)

// ParseStrategy validates a strategy name. Empty means StrategyCascade.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyCascade, nil
	case StrategyCascade, StrategyAxes:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Classifier is the contract consumed by the service and the worker pool.
type Classifier interface {
	Classify(rec model.AccountRecord) model.Classification
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStrategy selects the strategy.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		if s != "" {
			e.strategy = s
		}
	}
}

// WithRules replaces the decision tables.
func WithRules(set *rules.Set) Option {
	return func(e *Engine) {
		if set != nil {
			e.rules = set
		}
	}
}

// WithEstimator replaces the revenue-at-risk estimator.
func WithEstimator(est *scoring.Estimator) Option {
	return func(e *Engine) {
		if est != nil {
			e.estimator = est
		}
	}
}

// Engine evaluates the rule tables for one record at a time.
type Engine struct {
	strategy  Strategy
	rules     *rules.Set
	estimator *scoring.Estimator
}

// NewEngine creates an engine with the default tables and coefficients.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategy:  StrategyCascade,
		rules:     rules.New(),
		estimator: scoring.NewEstimator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the strategy in effect.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Rules returns the decision tables in use.
func (e *Engine) Rules() *rules.Set { return e.rules }

// Classify computes the category, sub-scores, recommended action and revenue
// at risk for rec. It never fails: unknown enumeration values fall through to
// the least severe reachable branch and are reported in Anomalies.
func (e *Engine) Classify(rec model.AccountRecord) model.Classification {
	category, rule := e.rules.Category.Evaluate(rec)
	churn, _ := e.rules.Churn.Evaluate(rec)
	usage, _ := e.rules.Usage.Evaluate(rec)
	growth, _ := e.rules.Growth.Evaluate(rec)

	c := model.Classification{
		Category:          category,
		ChurnRisk:         churn,
		UsageRisk:         usage,
		GrowthOpportunity: growth,
		Rule:              rule,
		Anomalies:         Anomalies(rec),
	}

	switch e.strategy {
	case StrategyAxes:
		c.RecommendedAction, _ = e.rules.AxisAction.Evaluate(rules.Axes{
			Churn:  churn,
			Usage:  usage,
			Growth: growth,
			Stress: rec.TicketStress,
		})
		c.RevenueAtRisk = e.estimator.ForLevel(rec.ARR, churn)
	default:
		c.RecommendedAction, _ = e.rules.CategoryAction.Evaluate(category)
		c.RevenueAtRisk = e.estimator.ForCategory(rec.ARR, category)
	}
	return c
}

// Field names used in anomalies; they match the CSV schema.
const (
	FieldDecline      = "decline_flag"
	FieldTicketStress = "ticket_stress"
	FieldRenewal      = "renewal_flag"
)

// Anomalies lists every enumeration field of rec holding a value outside its set.
func Anomalies(rec model.AccountRecord) []model.Anomaly {
	var out []model.Anomaly
	if !rec.Decline.Known() {
		out = append(out, model.Anomaly{Field: FieldDecline, Value: string(rec.Decline)})
	}
	if !rec.TicketStress.Known() {
		out = append(out, model.Anomaly{Field: FieldTicketStress, Value: string(rec.TicketStress)})
	}
	if !rec.Renewal.Known() {
		out = append(out, model.Anomaly{Field: FieldRenewal, Value: string(rec.Renewal)})
	}
	return out
}
