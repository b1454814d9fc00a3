package rules

import "errors"

// Sentinel error kinds for rule configuration.
var (
	ErrUnknownPolicy = errors.New("unknown needs-review policy")
)
