// Package types contains the read shapes shared by the service, the HTTP API and the report tool.
package types

import (
	"time"

	"github.com/okian/churnlens/internal/domain/dedupe"
	"github.com/okian/churnlens/internal/domain/model"
)

// AccountEntry is one row of the ranked account table.
type AccountEntry struct {
	Rank              int            `json:"rank"`
	AccountID         string         `json:"account_id"`
	ARR               float64        `json:"arr"`
	Category          model.Category `json:"category"`
	RevenueAtRisk     float64        `json:"revenue_at_risk"`
	RecommendedAction model.Action   `json:"recommended_action"`
}

// AccountDetail is the per-account recommendation panel.
type AccountDetail struct {
	Rank              int               `json:"rank"`
	AccountID         string            `json:"account_id"`
	ARR               float64           `json:"arr"`
	UsageTrend        *float64          `json:"usage_trend,omitempty"`
	DeclineFlag       model.DeclineFlag `json:"decline_flag"`
	TicketStress      model.StressLevel `json:"ticket_stress"`
	RenewalFlag       model.RenewalFlag `json:"renewal_flag"`
	Category          model.Category    `json:"category"`
	ChurnRisk         model.Level       `json:"churn_risk"`
	UsageRisk         model.Level       `json:"usage_risk"`
	GrowthOpportunity model.Level       `json:"growth_opportunity"`
	RevenueAtRisk     float64           `json:"revenue_at_risk"`
	RecommendedAction model.Action      `json:"recommended_action"`
	Rule              string            `json:"rule"`
	Anomalies         []model.Anomaly   `json:"anomalies,omitempty"`
}

// KPIs is the JSON form of model.PortfolioKPIs.
type KPIs struct {
	Accounts            int                    `json:"accounts"`
	TotalARR            float64                `json:"total_arr"`
	TotalRevenueAtRisk  float64                `json:"total_revenue_at_risk"`
	ChurnRiskAccounts   int                    `json:"churn_risk_accounts"`
	GrowthOpportunities int                    `json:"growth_opportunities"`
	CountByCategory     map[model.Category]int `json:"count_by_category"`
}

// Distribution is the JSON form of portfolio.Summary.
type Distribution struct {
	MeanARR            float64              `json:"mean_arr"`
	MedianARR          float64              `json:"median_arr"`
	MeanRevenueAtRisk  float64              `json:"mean_revenue_at_risk"`
	P90RevenueAtRisk   float64              `json:"p90_revenue_at_risk"`
	ExposureRatio      float64              `json:"exposure_ratio"`
	AccountsWithUsage  int                  `json:"accounts_with_usage"`
	MeanUsageTrend     float64              `json:"mean_usage_trend"`
	AnomalousAccounts  int                  `json:"anomalous_accounts"`
	ActionsRecommended map[model.Action]int `json:"actions_recommended"`
}

// RunInfo describes the evaluation pass that produced the current snapshot.
type RunInfo struct {
	RunID       string             `json:"run_id"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
	Duration    string             `json:"duration"`
	Source      string             `json:"source"`
	Strategy    string             `json:"strategy"`
	Policy      string             `json:"needs_review_policy"`
	Rejected    int                `json:"rejected_records"`
	Duplicates  []dedupe.Duplicate `json:"duplicates,omitempty"`
	Anomalies   int                `json:"anomalies"`
}

// PortfolioView is the KPI tile block.
type PortfolioView struct {
	KPIs         KPIs         `json:"kpis"`
	Distribution Distribution `json:"distribution"`
	Run          RunInfo      `json:"run"`
}

// CategoryInfo is one enumeration value with its presentation attributes.
type CategoryInfo struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Tone   string `json:"tone"`
	Action string `json:"action,omitempty"`
}

// AccountQuery selects rows of the account table. Empty fields match all.
type AccountQuery struct {
	Category string
	Action   string
	Limit    int
}
