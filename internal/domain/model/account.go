// Package model contains domain models passed between layers.
package model

import "strings"

// DeclineFlag reports whether account usage is declining.
type DeclineFlag string

// StressLevel is the support-ticket derived friction indicator.
type StressLevel string

// RenewalFlag reports whether the account is up for renewal.
type RenewalFlag string

// Decline flag values.
const (
	DeclineYes         DeclineFlag = "YES"
	DeclineNo          DeclineFlag = "NO"
	DeclineNeedsReview DeclineFlag = "NEEDS_REVIEW"
)

// Ticket stress levels.
const (
	StressLow    StressLevel = "LOW"
	StressMedium StressLevel = "MEDIUM"
	StressHigh   StressLevel = "HIGH"
)

// Renewal flag values.
const (
	RenewalYes RenewalFlag = "YES"
	RenewalNo  RenewalFlag = "NO"
)

// Known reports whether f belongs to the closed set of decline flags.
func (f DeclineFlag) Known() bool {
	switch f {
	case DeclineYes, DeclineNo, DeclineNeedsReview:
		return true
	}
	return false
}

// Known reports whether s belongs to the closed set of stress levels.
func (s StressLevel) Known() bool {
	switch s {
	case StressLow, StressMedium, StressHigh:
		return true
	}
	return false
}

// Known reports whether f belongs to the closed set of renewal flags.
func (f RenewalFlag) Known() bool {
	switch f {
	case RenewalYes, RenewalNo:
		return true
	}
	return false
}

// ParseDecline normalizes a raw cell ("Yes", "needs review") into a DeclineFlag.
// Values outside the closed set are returned normalized but unknown.
func ParseDecline(raw string) DeclineFlag { return DeclineFlag(Normalize(raw)) }

// ParseStress normalizes a raw cell ("High") into a StressLevel.
func ParseStress(raw string) StressLevel { return StressLevel(Normalize(raw)) }

// ParseRenewal normalizes a raw cell into a RenewalFlag.
func ParseRenewal(raw string) RenewalFlag { return RenewalFlag(Normalize(raw)) }

// Normalize upper-cases an enumeration cell and folds spaces and dashes to underscores.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// AccountRecord is one row of the accounts dataset.
// ARR is never negative; the loader rejects rows that violate that.
type AccountRecord struct {
	AccountID    string
	ARR          float64  // annual recurring revenue
	UsageTrend   *float64 // optional usage indicator, nil when the cell is empty
	Decline      DeclineFlag
	TicketStress StressLevel
	Renewal      RenewalFlag
}

// Usage returns the usage trend and whether it was present.
func (r AccountRecord) Usage() (float64, bool) {
	if r.UsageTrend == nil {
		return 0, false
	}
	return *r.UsageTrend, true
}

// Float returns a pointer to v, handy for building records with a usage trend.
func Float(v float64) *float64 { return &v }
