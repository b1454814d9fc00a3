package worker

import "errors"

// Sentinel kinds for result collection errors.
var (
	ErrOutOfRange = errors.New("sequence out of range")
	ErrSlotTaken  = errors.New("sequence already stored")
	ErrIncomplete = errors.New("evaluation incomplete")
)
