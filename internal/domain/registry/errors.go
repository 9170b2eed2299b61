package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrUnknownSource = errors.New("unknown source")
	ErrInvalidSource = errors.New("invalid source")
)
