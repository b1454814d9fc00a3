package model

// Presentation tones, matching the alert styles of the dashboard.
const (
	ToneError   = "error"
	ToneWarning = "warning"
	ToneSuccess = "success"
	ToneInfo    = "info"
)

type presentation struct {
	label string
	tone  string
}

var categoryPresentation = map[Category]presentation{
	CategoryChurnRisk:         {"Churn Risk 🔴", ToneError},
	CategoryRenewalRisk:       {"Renewal Risk ⏳", ToneWarning},
	CategoryUsageDecline:      {"Usage Decline 📉", ToneWarning},
	CategoryNeedsExtraCare:    {"Needs Extra Care 🔧", ToneWarning},
	CategoryGrowthOpportunity: {"Growth Opportunity 🚀", ToneSuccess},
	CategoryLowEngagementRisk: {"Low Engagement Risk 🟡", ToneWarning},
	CategoryStable:            {"Stable Accounts ✅", ToneInfo},
}

var actionPresentation = map[Action]presentation{
	ActionExecRecoveryPlan:     {"🔥 Exec Alignment + Recovery Plan", ToneError},
	ActionUsageRecovery:        {"Usage Recovery Intervention", ToneWarning},
	ActionSupportStabilization: {"Technical / Support Stabilization", ToneWarning},
	ActionRenewalEngagement:    {"Renewal Engagement Strategy", ToneWarning},
	ActionExpansionUpsell:      {"🚀 Expansion / Upsell Play", ToneSuccess},
	ActionProactiveEngagement:  {"Proactive Engagement Recommended", ToneWarning},
	ActionMonitor:              {"Monitor", ToneInfo},
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	if p, ok := categoryPresentation[c]; ok {
		return p.label
	}
	return string(c)
}

// Tone returns the alert style used to render c.
func (c Category) Tone() string {
	if p, ok := categoryPresentation[c]; ok {
		return p.tone
	}
	return ToneInfo
}

// Label returns the display label, or the raw value for unknown actions.
func (a Action) Label() string {
	if p, ok := actionPresentation[a]; ok {
		return p.label
	}
	return string(a)
}

// Tone returns the alert style used to render a.
func (a Action) Tone() string {
	if p, ok := actionPresentation[a]; ok {
		return p.tone
	}
	return ToneInfo
}

// Known reports whether a is one of Actions().
func (a Action) Known() bool {
	_, ok := actionPresentation[a]
	return ok
}
