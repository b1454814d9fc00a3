package report

import "time"

// Defaults for the report tool.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultTop     = 15
	DefaultTimeout = 10 * time.Second
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// tolerance bounds the difference accepted between local and remote money values.
const tolerance = 0.005
