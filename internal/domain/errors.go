package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrStoreUnavailable means the document store could not be reached at all.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrScanFailed wraps any catalog query failure; a run that hits it aborts
	// without persisting anything.
	ErrScanFailed = errors.New("scan failed")
	// ErrDispatchFailed is scoped to a single tenant and never aborts the run.
	ErrDispatchFailed = errors.New("dispatch failed")
	// ErrRunInProgress is returned when a trigger overlaps a running job.
	ErrRunInProgress = errors.New("expiry run already in progress")
)
