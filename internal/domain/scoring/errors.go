package scoring

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidCoefficient = errors.New("invalid revenue-at-risk coefficient")
)
