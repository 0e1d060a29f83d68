package users

import (
	"strings"
	"time"
)

// Role identifies what a user can do on the platform.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User is a platform account. Contact fields are what the notification
// channel senders resolve against.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	PushToken      string    `json:"push_token,omitempty"`
	Role           Role      `json:"role"`
	Specialization string    `json:"specialization,omitempty"` // doctors only
	CreatedAt      time.Time `json:"created_at"`
}

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Role           Role   `json:"role"`
	Specialization string `json:"specialization"`
}

// Validate checks the request fields.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if !r.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}
