package fetch

import "errors"

// Sentinel kinds for fetch errors.
var (
	ErrFeed          = errors.New("invalid feed")
	ErrInactive      = errors.New("source inactive")
	ErrUnknownSource = errors.New("fetcher for unregistered source")
)
