package service

import "errors"

// Every error returned by this package wraps exactly one of these sentinels.
var (
	// ErrNotFound is returned when a booking, vehicle, user or driver does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when the booking's status does not permit the operation.
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden is returned when the actor is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a concurrent change won, e.g. the vehicle was taken.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when the request itself is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable is returned when storage timed out or failed.
	ErrUnavailable = errors.New("service unavailable")
)

var sentinels = []error{ErrNotFound, ErrInvalidState, ErrForbidden, ErrConflict, ErrValidation, ErrUnavailable}

// Kind returns the sentinel err wraps, or nil.
func Kind(err error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// kindLabel is the metrics label for err.
func kindLabel(err error) string {
	switch Kind(err) {
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrForbidden:
		return "forbidden"
	case ErrConflict:
		return "conflict"
	case ErrValidation:
		return "validation"
	case ErrUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
