package video

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// StubProvider fabricates rooms locally. Used in development and tests
// when no rooms API is configured.
type StubProvider struct {
	mu      sync.Mutex
	created map[string]time.Time
	logger  *logging.Logger
}

// NewStubProvider creates a stub video provider.
func NewStubProvider(logger *logging.Logger) *StubProvider {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubProvider{
		created: make(map[string]time.Time),
		logger:  logger,
	}
}

// CreateCall fabricates a room id and URL.
func (s *StubProvider) CreateCall(ctx context.Context, appointmentID string) (*Call, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	s.mu.Lock()
	s.created[id] = now
	s.mu.Unlock()

	s.logger.Info("stub video provider: room created", "appointment_id", appointmentID, "call_id", id)
	return &Call{
		ID:        id,
		URL:       fmt.Sprintf("https://meet.mediconnect.local/%s", id),
		ExpiresAt: now.Add(2 * time.Hour),
	}, nil
}

// EndCall reports a summary for a room this stub created.
func (s *StubProvider) EndCall(ctx context.Context, callID string) (*SessionSummary, error) {
	s.mu.Lock()
	started, ok := s.created[callID]
	delete(s.created, callID)
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("video: unknown call %s", callID)
	}
	ended := time.Now().UTC()
	return &SessionSummary{
		CallID:          callID,
		StartedAt:       &started,
		EndedAt:         &ended,
		DurationSeconds: int(ended.Sub(started).Seconds()),
	}, nil
}

// GenerateToken returns a deterministic fake token.
func (s *StubProvider) GenerateToken(ctx context.Context, callID, userID, role string) (string, error) {
	return fmt.Sprintf("stub-token-%s-%s-%s", callID, userID, role), nil
}

var _ Provider = (*StubProvider)(nil)
