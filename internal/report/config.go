// Package report renders an offline portfolio report from an accounts file and
// verifies a running service against a local evaluation of the same file.
package report

import (
	"time"

	"github.com/okian/churnlens/internal/adapters/loader"
	"github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/dedupe"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/portfolio"
)

// Config holds configuration for the report tool.
type Config struct {
	BaseURL  string        // Base URL of the service to verify
	DataPath string        // Accounts file evaluated locally
	OutPath  string        // Markdown output file, empty writes to stdout
	Top      int           // Number of at-risk accounts listed and compared
	Timeout  time.Duration // HTTP request timeout
	Strict   bool          // Fail on the first malformed row
}

// Evaluation is one local pass over an accounts file.
type Evaluation struct {
	Source      string
	Strategy    string
	EvaluatedAt time.Time
	Accounts    []repository.Ranked // rank order
	KPIs        model.PortfolioKPIs
	Summary     portfolio.Summary
	Rejected    []*loader.RecordError
	Duplicates  []dedupe.Duplicate
}

// Top returns at most n accounts in rank order.
func (e *Evaluation) Top(n int) []repository.Ranked {
	if n < 0 || n > len(e.Accounts) {
		n = len(e.Accounts)
	}
	return e.Accounts[:n]
}

// Check is one verification step.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Verification collects the outcome of Verify.
type Verification struct {
	BaseURL  string
	Checks   []Check
	Duration time.Duration
}

// Passed reports whether every check succeeded.
func (v *Verification) Passed() bool {
	for _, c := range v.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed returns the failing checks.
func (v *Verification) Failed() []Check {
	var out []Check
	for _, c := range v.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}
