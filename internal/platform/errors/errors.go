package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a rejected Edit Guard or materialization-state violation
	// (e.g. editing a frozen field on a materialized entity, deleting a
	// materialized stage).
	ErrConflict = errors.New("conflict")
)
