package classify

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownStrategy = errors.New("unknown classification strategy")
)
