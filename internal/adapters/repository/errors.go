package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNotFound     = errors.New("account not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrNoSnapshot   = errors.New("no snapshot evaluated yet")
)
