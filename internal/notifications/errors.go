package notifications

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a notification does not exist or is
	// not owned by the acting user.
	ErrNotFound = errors.New("notifications: notification not found")
)

// ValidationError describes malformed or out-of-range input. It is
// surfaced to the caller before any persistence happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("notifications: invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
