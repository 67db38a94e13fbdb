package library

import "errors"

// Error taxonomy shared by every store backend. Implementations wrap backend
// failures into one of these so callers can branch with errors.Is without
// knowing which backend is configured.
var (
	// ErrUnavailable marks a transient backend failure (network, pool
	// exhaustion). Readers degrade to empty results; writers surface it.
	ErrUnavailable = errors.New("library: store unavailable")

	// ErrNotFound marks an absent single-key record where absence is
	// meaningful. GetProgress never returns it: missing progress is 0.
	ErrNotFound = errors.New("library: not found")

	// ErrInvalidArgument marks a malformed key or non-positive limit. A
	// contract violation by the caller, not a backend condition.
	ErrInvalidArgument = errors.New("library: invalid argument")

	// ErrUnauthenticated marks an operation attempted without a resolved
	// uid. Raised before any store call is made.
	ErrUnauthenticated = errors.New("library: not signed in")
)
