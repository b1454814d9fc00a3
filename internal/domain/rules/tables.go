package rules

import (
	"fmt"
	"strings"

	"github.com/okian/churnlens/internal/domain/model"
)

// Default thresholds.
const (
	DefaultGrowthARR = 50_000
	DefaultLowUsage  = 2.5
)

// ReviewPolicy decides how a NEEDS_REVIEW decline flag takes part in the tables.
type ReviewPolicy string

// Review policies.
const (
	// ReviewDistinct keeps NEEDS_REVIEW as its own value: it matches neither the
	// YES nor the NO guards and lifts the usage axis to REVIEW.
	ReviewDistinct ReviewPolicy = "distinct"
	ReviewAsNo     ReviewPolicy = "as_no"
	ReviewAsYes    ReviewPolicy = "as_yes"
)

// ParseReviewPolicy validates a policy name. Empty means ReviewDistinct.
func ParseReviewPolicy(s string) (ReviewPolicy, error) {
	switch p := ReviewPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ReviewDistinct, nil
	case ReviewDistinct, ReviewAsNo, ReviewAsYes:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Thresholds are the numeric cut-offs used by the guards.
type Thresholds struct {
	GrowthARR float64 // ARR strictly above this is a growth candidate
	LowUsage  float64 // usage at or below this is low engagement
}

// Axes is the input of the axis action table.
type Axes struct {
	Churn  model.Level
	Usage  model.Level
	Growth model.Level
	Stress model.StressLevel
}

// Option applies a configuration option to the Set.
type Option func(*Set)

// WithThresholds overrides the numeric thresholds. Non-positive values keep the defaults.
func WithThresholds(t Thresholds) Option {
	return func(s *Set) {
		if t.GrowthARR > 0 {
			s.thresholds.GrowthARR = t.GrowthARR
		}
		if t.LowUsage > 0 {
			s.thresholds.LowUsage = t.LowUsage
		}
	}
}

// WithReviewPolicy sets how NEEDS_REVIEW is treated.
func WithReviewPolicy(p ReviewPolicy) Option {
	return func(s *Set) {
		if p != "" {
			s.policy = p
		}
	}
}

// Set is one configuration of every decision table.
type Set struct {
	thresholds Thresholds
	policy     ReviewPolicy
	aliases    map[model.DeclineFlag]model.DeclineFlag

	Category       Cascade[model.AccountRecord, model.Category]
	CategoryAction Cascade[model.Category, model.Action]
	Churn          Cascade[model.AccountRecord, model.Level]
	Usage          Cascade[model.AccountRecord, model.Level]
	Growth         Cascade[model.AccountRecord, model.Level]
	AxisAction     Cascade[Axes, model.Action]
}

// New builds the decision tables.
func New(opts ...Option) *Set {
	s := &Set{
		thresholds: Thresholds{GrowthARR: DefaultGrowthARR, LowUsage: DefaultLowUsage},
		policy:     ReviewDistinct,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.aliases = map[model.DeclineFlag]model.DeclineFlag{}
	switch s.policy {
	case ReviewAsNo:
		s.aliases[model.DeclineNeedsReview] = model.DeclineNo
	case ReviewAsYes:
		s.aliases[model.DeclineNeedsReview] = model.DeclineYes
	}

	s.build()
	return s
}

// Thresholds returns the thresholds in effect.
func (s *Set) Thresholds() Thresholds { return s.thresholds }

// Policy returns the NEEDS_REVIEW policy in effect.
func (s *Set) Policy() ReviewPolicy { return s.policy }

// Decline resolves the decline flag of r through the policy aliases.
func (s *Set) Decline(r model.AccountRecord) model.DeclineFlag {
	if to, ok := s.aliases[r.Decline]; ok {
		return to
	}
	return r.Decline
}

func (s *Set) build() {
	declined := func(r model.AccountRecord) bool { return s.Decline(r) == model.DeclineYes }
	notDeclined := func(r model.AccountRecord) bool { return s.Decline(r) == model.DeclineNo }
	inReview := func(r model.AccountRecord) bool { return s.Decline(r) == model.DeclineNeedsReview }
	stressed := func(r model.AccountRecord) bool { return r.TicketStress == model.StressHigh }
	renewing := func(r model.AccountRecord) bool { return r.Renewal == model.RenewalYes }
	large := func(r model.AccountRecord) bool { return r.ARR > s.thresholds.GrowthARR }
	lowUsage := func(r model.AccountRecord) bool {
		u, ok := r.Usage()
		return ok && u <= s.thresholds.LowUsage
	}
	healthyUsage := func(r model.AccountRecord) bool {
		u, ok := r.Usage()
		return ok && u > s.thresholds.LowUsage
	}

	s.Category = NewCascade("category", model.CategoryStable,
		Rule[model.AccountRecord, model.Category]{
			Name: "decline_and_high_stress",
			When: func(r model.AccountRecord) bool { return declined(r) && stressed(r) },
			Then: model.CategoryChurnRisk,
		},
		Rule[model.AccountRecord, model.Category]{Name: "renewal_due", When: renewing, Then: model.CategoryRenewalRisk},
		Rule[model.AccountRecord, model.Category]{Name: "usage_declining", When: declined, Then: model.CategoryUsageDecline},
		Rule[model.AccountRecord, model.Category]{Name: "high_ticket_stress", When: stressed, Then: model.CategoryNeedsExtraCare},
		Rule[model.AccountRecord, model.Category]{
			Name: "large_and_steady",
			When: func(r model.AccountRecord) bool { return notDeclined(r) && large(r) },
			Then: model.CategoryGrowthOpportunity,
		},
		Rule[model.AccountRecord, model.Category]{
			Name: "low_usage",
			When: func(r model.AccountRecord) bool { return notDeclined(r) && lowUsage(r) },
			Then: model.CategoryLowEngagementRisk,
		},
	)

	s.CategoryAction = NewCascade("category_action", model.ActionMonitor,
		categoryIs(model.CategoryChurnRisk, model.ActionExecRecoveryPlan),
		categoryIs(model.CategoryUsageDecline, model.ActionUsageRecovery),
		categoryIs(model.CategoryNeedsExtraCare, model.ActionSupportStabilization),
		categoryIs(model.CategoryRenewalRisk, model.ActionRenewalEngagement),
		categoryIs(model.CategoryGrowthOpportunity, model.ActionExpansionUpsell),
		categoryIs(model.CategoryLowEngagementRisk, model.ActionProactiveEngagement),
	)

	s.Churn = NewCascade("churn_risk", model.LevelLow,
		Rule[model.AccountRecord, model.Level]{
			Name: "decline_and_high_stress",
			When: func(r model.AccountRecord) bool { return declined(r) && stressed(r) },
			Then: model.LevelHigh,
		},
		Rule[model.AccountRecord, model.Level]{
			Name: "decline_or_renewal",
			When: func(r model.AccountRecord) bool { return declined(r) || renewing(r) },
			Then: model.LevelMedium,
		},
	)

	usage := []Rule[model.AccountRecord, model.Level]{
		{Name: "usage_declining", When: declined, Then: model.LevelHigh},
	}
	if s.policy == ReviewDistinct {
		usage = append(usage, Rule[model.AccountRecord, model.Level]{Name: "decline_needs_review", When: inReview, Then: model.LevelReview})
	}
	usage = append(usage, Rule[model.AccountRecord, model.Level]{Name: "low_usage", When: lowUsage, Then: model.LevelMedium})
	s.Usage = NewCascade("usage_risk", model.LevelLow, usage...)

	s.Growth = NewCascade("growth_opportunity", model.LevelLow,
		Rule[model.AccountRecord, model.Level]{
			Name: "large_steady_calm",
			When: func(r model.AccountRecord) bool { return notDeclined(r) && large(r) && !stressed(r) },
			Then: model.LevelHigh,
		},
		Rule[model.AccountRecord, model.Level]{
			Name: "steady_usage",
			When: func(r model.AccountRecord) bool { return notDeclined(r) && healthyUsage(r) },
			Then: model.LevelMedium,
		},
	)

	s.AxisAction = NewCascade("axis_action", model.ActionMonitor,
		Rule[Axes, model.Action]{Name: "churn_high", When: func(a Axes) bool { return a.Churn == model.LevelHigh }, Then: model.ActionExecRecoveryPlan},
		Rule[Axes, model.Action]{Name: "usage_high", When: func(a Axes) bool { return a.Usage == model.LevelHigh }, Then: model.ActionUsageRecovery},
		Rule[Axes, model.Action]{Name: "stress_high", When: func(a Axes) bool { return a.Stress == model.StressHigh }, Then: model.ActionSupportStabilization},
		Rule[Axes, model.Action]{Name: "growth_high", When: func(a Axes) bool { return a.Growth == model.LevelHigh }, Then: model.ActionExpansionUpsell},
	)
}

func categoryIs(c model.Category, a model.Action) Rule[model.Category, model.Action] {
	return Rule[model.Category, model.Action]{
		Name: strings.ToLower(string(c)),
		When: func(in model.Category) bool { return in == c },
		Then: a,
	}
}
