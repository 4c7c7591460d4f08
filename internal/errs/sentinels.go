// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across transport/service layers.
var (
	// ErrNotFound indicates the backend reported a missing resource (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the backend rejected the bearer token or credentials (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict indicates the backend refused a duplicate action such as a second vote (HTTP 409).
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated indicates an authenticated operation was attempted without a session.
	ErrUnauthenticated = errors.New("login required")

	// ErrNoToken indicates a login response carried neither token nor access_token.
	ErrNoToken = errors.New("login response has no token")

	// ErrMissingFile indicates an upload was requested without a video file.
	ErrMissingFile = errors.New("video file is required")

	// ErrNotProcessed indicates publishing a video that has not finished processing.
	ErrNotProcessed = errors.New("video is not processed yet")

	// ErrStale indicates a response was superseded by a more recent request for the same video.
	ErrStale = errors.New("stale response discarded")

	// ErrInFlight indicates the same operation on the same video is already running.
	ErrInFlight = errors.New("operation already in progress")

	// ErrValidation indicates a request rejected locally before reaching the backend.
	ErrValidation = errors.New("validation")

	// ErrRateLimited indicates the client-side request throttle refused to wait.
	ErrRateLimited = errors.New("rate limited")
)
