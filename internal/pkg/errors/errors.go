package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a permission or policy check fails. It is
	// never downgraded to ErrNotFound on the way out.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict is returned when a mutation would break a uniqueness or
	// reference rule (e.g. deleting a role that accounts still use).
	ErrConflict = errors.New("conflict")
	// ErrIntegrity marks a cross-store inconsistency, e.g. a lesson view that
	// belongs to a different course than the request claims.
	ErrIntegrity = errors.New("data integrity violation")
)
