// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios without string matching. For example, ErrEmailExists
// signals a duplicate registration, while ErrNotFound is returned
// when a referenced row does not exist.
package repository

import "errors"

// ErrEmailExists is returned when inserting a user whose email is
// already registered. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no rows. Handlers
// translate this into HTTP 404 where the resource was named by the
// client, or into flow-specific generic messages in the auth paths.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, such as deleting a route that still has buses.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
