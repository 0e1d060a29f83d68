package video

import (
	"context"
	"time"
)

// Call is one provisioned video room.
type Call struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionSummary describes a finished call.
type SessionSummary struct {
	CallID          string     `json:"call_id"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Participants    int        `json:"participants"`
}

// Provider provisions video rooms for confirmed appointments.
// Implementations wrap a real conferencing vendor; the stub serves
// development and tests.
type Provider interface {
	CreateCall(ctx context.Context, appointmentID string) (*Call, error)
	EndCall(ctx context.Context, callID string) (*SessionSummary, error)
	GenerateToken(ctx context.Context, callID, userID, role string) (string, error)
}
