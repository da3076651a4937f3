// Package repository defines error types that are reused across the user
// and token repositories. These sentinel values allow higher layers such
// as handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors: ErrEmailExists signals a duplicate
// registration, ErrNotFound a missing user or token row.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique key
// on users.email. Handlers should translate this into the same response
// as a pre-checked duplicate, so concurrent registrations that race at
// the store surface as a conflict rather than a server error.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. Handlers decide
// per flow whether this is a 404 (missing user) or part of a generic
// credential failure.
var ErrNotFound = errors.New("not found")
