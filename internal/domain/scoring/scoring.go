// Package scoring estimates revenue at risk from an already computed
// classification. It is a table lookup: no business rules live here.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/churnlens/internal/domain/model"
)

// Default coefficients, as fractions of ARR.
const (
	DefaultHigh     = 0.6
	DefaultMedium   = 0.3
	DefaultRenewal  = 0.2
	DefaultBaseline = 0.1
)

// Coefficients are the policy constants applied to ARR.
type Coefficients struct {
	High     float64 // CHURN_RISK or a HIGH churn level
	Medium   float64 // USAGE_DECLINE or a MEDIUM churn level
	Renewal  float64 // RENEWAL_RISK
	Baseline float64 // everything else
}

// DefaultCoefficients returns 0.6/0.3/0.2/0.1.
func DefaultCoefficients() Coefficients {
	return Coefficients{High: DefaultHigh, Medium: DefaultMedium, Renewal: DefaultRenewal, Baseline: DefaultBaseline}
}

// Validate checks that every coefficient is a fraction in [0, 1].
func (c Coefficients) Validate() error {
	for name, v := range map[string]float64{
		"high":     c.High,
		"medium":   c.Medium,
		"renewal":  c.Renewal,
		"baseline": c.Baseline,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidCoefficient, name, v)
		}
	}
	return nil
}

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithCoefficients replaces the coefficient table. Invalid tables are ignored.
func WithCoefficients(c Coefficients) Option {
	return func(e *Estimator) {
		if c.Validate() == nil {
			e.coefficients = c
		}
	}
}

// Estimator maps ARR plus a severity key to a monetary exposure.
type Estimator struct {
	coefficients Coefficients
}

// NewEstimator creates an estimator with the default coefficients.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{coefficients: DefaultCoefficients()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Coefficients returns the table in effect.
func (e *Estimator) Coefficients() Coefficients { return e.coefficients }

// ForCategory estimates revenue at risk keyed by portfolio category.
func (e *Estimator) ForCategory(arr float64, c model.Category) float64 {
	switch c {
	case model.CategoryChurnRisk:
		return apply(arr, e.coefficients.High)
	case model.CategoryUsageDecline:
		return apply(arr, e.coefficients.Medium)
	case model.CategoryRenewalRisk:
		return apply(arr, e.coefficients.Renewal)
	default:
		return apply(arr, e.coefficients.Baseline)
	}
}

// ForLevel estimates revenue at risk keyed by a churn sub-score.
func (e *Estimator) ForLevel(arr float64, l model.Level) float64 {
	switch l {
	case model.LevelHigh:
		return apply(arr, e.coefficients.High)
	case model.LevelMedium:
		return apply(arr, e.coefficients.Medium)
	default:
		return apply(arr, e.coefficients.Baseline)
	}
}

// apply keeps the result inside [0, arr].
func apply(arr, coefficient float64) float64 {
	if arr <= 0 || math.IsNaN(arr) {
		return 0
	}
	return math.Max(0, math.Min(arr, arr*coefficient))
}
