package model

// Category is the single label summarizing an account's risk/opportunity posture.
type Category string

// Portfolio categories, most severe first.
const (
	CategoryChurnRisk         Category = "CHURN_RISK"
	CategoryRenewalRisk       Category = "RENEWAL_RISK"
	CategoryUsageDecline      Category = "USAGE_DECLINE"
	CategoryNeedsExtraCare    Category = "NEEDS_EXTRA_CARE"
	CategoryGrowthOpportunity Category = "GROWTH_OPPORTUNITY"
	CategoryLowEngagementRisk Category = "LOW_ENGAGEMENT_RISK"
	CategoryStable            Category = "STABLE"
)

// Categories returns every category in cascade order.
func Categories() []Category {
	return []Category{
		CategoryChurnRisk,
		CategoryRenewalRisk,
		CategoryUsageDecline,
		CategoryNeedsExtraCare,
		CategoryGrowthOpportunity,
		CategoryLowEngagementRisk,
		CategoryStable,
	}
}

// Known reports whether c is one of Categories().
func (c Category) Known() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// Action is a recommended next step for an account.
type Action string

// Recommended actions.
const (
	ActionExecRecoveryPlan     Action = "EXEC_RECOVERY_PLAN"
	ActionUsageRecovery        Action = "USAGE_RECOVERY"
	ActionSupportStabilization Action = "SUPPORT_STABILIZATION"
	ActionRenewalEngagement    Action = "RENEWAL_ENGAGEMENT"
	ActionExpansionUpsell      Action = "EXPANSION_UPSELL"
	ActionProactiveEngagement  Action = "PROACTIVE_ENGAGEMENT"
	ActionMonitor              Action = "MONITOR"
)

// Actions returns every recommended action.
func Actions() []Action {
	return []Action{
		ActionExecRecoveryPlan,
		ActionUsageRecovery,
		ActionSupportStabilization,
		ActionRenewalEngagement,
		ActionExpansionUpsell,
		ActionProactiveEngagement,
		ActionMonitor,
	}
}

// Level is an ordinal sub-score on one risk axis.
type Level string

// Sub-score levels. REVIEW sits between MEDIUM and HIGH and marks records that
// need a human look rather than an automated play.
const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelReview Level = "REVIEW"
	LevelHigh   Level = "HIGH"
)

// Anomaly records a field value that fell outside its enumeration.
type Anomaly struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Classification is derived from one AccountRecord and never persisted.
type Classification struct {
	Category          Category
	ChurnRisk         Level
	UsageRisk         Level
	GrowthOpportunity Level
	RevenueAtRisk     float64
	RecommendedAction Action

	// Rule names the category rule that matched.
	Rule      string
	Anomalies []Anomaly
}

// ClassifiedAccount pairs a record with its classification.
type ClassifiedAccount struct {
	Record         AccountRecord
	Classification Classification
}

// PortfolioKPIs are the portfolio-level reductions shown as KPI tiles.
type PortfolioKPIs struct {
	TotalARR           float64
	TotalRevenueAtRisk float64
	CountByCategory    map[Category]int
	Accounts           int
}

// ChurnRiskAccounts returns the number of accounts in CHURN_RISK.
func (k PortfolioKPIs) ChurnRiskAccounts() int { return k.CountByCategory[CategoryChurnRisk] }

// GrowthOpportunities returns the number of accounts in GROWTH_OPPORTUNITY.
func (k PortfolioKPIs) GrowthOpportunities() int {
	return k.CountByCategory[CategoryGrowthOpportunity]
}
