package metadata

import "errors"

var (
	// ErrNotFound means the service answered but had no matching title.
	ErrNotFound = errors.New("metadata not found")
	// ErrResolverUnavailable means the service could not be asked: network
	// failure, rate limiting, server errors or a rejected API key.
	ErrResolverUnavailable = errors.New("metadata resolver unavailable")
)
