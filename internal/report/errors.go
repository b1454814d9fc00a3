package report

import "errors"

// Sentinel errors for the report tool.
var (
	ErrNoAccounts         = errors.New("no accounts to report")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
	ErrVerificationFailed = errors.New("verification failed")
)
