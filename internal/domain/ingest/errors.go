package ingest

import "errors"

// ErrInvalidObservation marks observations that cannot be turned into a
// point at all, such as a missing source id or category.
var ErrInvalidObservation = errors.New("invalid observation")
