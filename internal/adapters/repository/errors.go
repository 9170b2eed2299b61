package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound     = errors.New("knowledge point not found")
	ErrInvalidPoint = errors.New("invalid knowledge point")
)
