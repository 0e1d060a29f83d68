package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the appointment does not exist or the
	// acting user is not a party to it.
	ErrNotFound = errors.New("appointments: appointment not found")

	// ErrSlotConflict is returned when the doctor already has an active
	// appointment within the conflict window.
	ErrSlotConflict = errors.New("appointments: doctor has a conflicting appointment")

	// ErrCannotCancel is returned when the cancellation window has
	// passed or the appointment is not in a cancellable state.
	ErrCannotCancel = errors.New("appointments: appointment cannot be cancelled")

	// ErrTerminalStatus is returned on any transition out of a terminal
	// state.
	ErrTerminalStatus = errors.New("appointments: appointment is in a terminal state")

	// ErrForbidden is returned when the actor lacks standing for the
	// operation.
	ErrForbidden = errors.New("appointments: operation not permitted for this user")
)

// ValidationError describes malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("appointments: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
