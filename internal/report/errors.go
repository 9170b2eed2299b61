package report

import "errors"

// Sentinel kinds for report errors.
var (
	ErrConfig = errors.New("invalid report config")
	ErrFormat = errors.New("unknown output format")
)
