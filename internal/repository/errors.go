// Package repository implements storage over MySQL with raw SQL.  It
// defines one repo per table plus the Store/Tx implementation the
// booking engine consumes.  Sentinel errors defined here let higher
// layers distinguish failure scenarios with errors.Is instead of
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a unique
// constraint the caller cares about, such as adding a blackout for a
// day that already has one.
var ErrDuplicate = errors.New("already exists")
