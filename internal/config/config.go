// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load to layer overrides.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/internal/domain/rules"
	"github.com/okian/churnlens/internal/domain/scoring"
	"github.com/robfig/cron/v3"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataPath is the accounts CSV evaluated on start and on every reload.
	DataPath string `koanf:"data_path"`

	// StrictLoad fails the whole load on the first malformed row.
	StrictLoad bool `koanf:"strict_load"`

	// WorkerCount above 1 enables the parallel evaluation pass.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the job queue of the parallel pass.
	QueueSize int `koanf:"queue_size"`

	// Strategy selects what drives the recommended action: cascade or axes.
	Strategy string `koanf:"strategy"`

	// NeedsReviewPolicy is distinct, as_no or as_yes.
	NeedsReviewPolicy string `koanf:"needs_review_policy"`

	GrowthARRThreshold float64 `koanf:"growth_arr_threshold"`
	LowUsageThreshold  float64 `koanf:"low_usage_threshold"`

	// Revenue-at-risk coefficients, each in [0, 1].
	CoefficientHigh     float64 `koanf:"coefficient_high"`
	CoefficientMedium   float64 `koanf:"coefficient_medium"`
	CoefficientRenewal  float64 `koanf:"coefficient_renewal"`
	CoefficientBaseline float64 `koanf:"coefficient_baseline"`

	// MaxAccountsLimit caps GET /accounts?limit and GET /at-risk?limit.
	MaxAccountsLimit int `koanf:"max_accounts_limit"`

	// ReloadSchedule is a cron expression; empty disables scheduled reloads.
	ReloadSchedule string `koanf:"reload_schedule"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DataPath:            "data/accounts.csv",
		StrictLoad:          true,
		WorkerCount:         1,
		QueueSize:           4096,
		Strategy:            string(classify.StrategyCascade),
		NeedsReviewPolicy:   string(rules.ReviewDistinct),
		GrowthARRThreshold:  rules.DefaultGrowthARR,
		LowUsageThreshold:   rules.DefaultLowUsage,
		CoefficientHigh:     scoring.DefaultHigh,
		CoefficientMedium:   scoring.DefaultMedium,
		CoefficientRenewal:  scoring.DefaultRenewal,
		CoefficientBaseline: scoring.DefaultBaseline,
		MaxAccountsLimit:    1000,
	}
}

// Coefficients returns the revenue-at-risk table.
func (c *Config) Coefficients() scoring.Coefficients {
	return scoring.Coefficients{
		High:     c.CoefficientHigh,
		Medium:   c.CoefficientMedium,
		Renewal:  c.CoefficientRenewal,
		Baseline: c.CoefficientBaseline,
	}
}

// Thresholds returns the numeric rule cut-offs.
func (c *Config) Thresholds() rules.Thresholds {
	return rules.Thresholds{GrowthARR: c.GrowthARRThreshold, LowUsage: c.LowUsageThreshold}
}

// Validate checks every field and returns the first problem wrapped with
// ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataPath) == "":
		return fmt.Errorf("%w: data_path must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxAccountsLimit < 1:
		return fmt.Errorf("%w: max_accounts_limit must be positive, got %d", ErrInvalidConfig, c.MaxAccountsLimit)
	case c.GrowthARRThreshold <= 0:
		return fmt.Errorf("%w: growth_arr_threshold must be positive", ErrInvalidConfig)
	case c.LowUsageThreshold <= 0:
		return fmt.Errorf("%w: low_usage_threshold must be positive", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := classify.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := rules.ParseReviewPolicy(c.NeedsReviewPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Coefficients().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.ReloadSchedule); err != nil {
			return fmt.Errorf("%w: reload_schedule: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Engine builds the classification engine described by c.
func (c *Config) Engine() (*classify.Engine, error) {
	strategy, err := classify.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	policy, err := rules.ParseReviewPolicy(c.NeedsReviewPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Coefficients().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return classify.NewEngine(
		classify.WithStrategy(strategy),
		classify.WithRules(rules.New(
			rules.WithThresholds(c.Thresholds()),
			rules.WithReviewPolicy(policy),
		)),
		classify.WithEstimator(scoring.NewEstimator(scoring.WithCoefficients(c.Coefficients()))),
	), nil
}
