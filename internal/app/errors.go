package service

import "errors"

// Sentinel kinds for engine lifecycle errors.
var (
	ErrNotStarted = errors.New("engine not started")
	ErrStopped    = errors.New("engine stopped")
)
