package users

import "errors"

var (
	// ErrInvalidName is returned when the name is empty
	ErrInvalidName = errors.New("users: name is required")

	// ErrMissingEmail is returned when the email is empty
	ErrMissingEmail = errors.New("users: email is required")

	// ErrInvalidRole is returned for roles outside the known set
	ErrInvalidRole = errors.New("users: invalid role")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("users: user not found")
)
