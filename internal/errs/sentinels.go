// Package errs contains sentinel errors and typed failures used across layers
// for stable error mapping.
package errs

import "errors"

// Common sentinels across client layers.
var (
	// ErrAuthRejected indicates the backend refused the bearer token (401/403).
	ErrAuthRejected = errors.New("auth rejected")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network failure")

	// ErrNotLoggedIn indicates an operation that requires an authenticated session.
	ErrNotLoggedIn = errors.New("not logged in")
)
