package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotReady        = errors.New("no evaluation available yet")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownAction   = errors.New("unknown action")
)
