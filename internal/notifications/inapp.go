package notifications

import (
	"context"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// UserPusher pushes a payload to a user's live connections, reporting
// whether anyone was connected. The realtime websocket hub implements
// this.
type UserPusher interface {
	PushToUser(userID string, payload any) bool
}

// InAppSender delivers in-app notifications. Persisting the record is
// itself the delivery, so Send never fails; a connected websocket
// client additionally gets the record pushed, best-effort.
type InAppSender struct {
	hub    UserPusher
	logger *logging.Logger
}

// NewInAppSender creates the in-app channel adapter. hub may be nil.
func NewInAppSender(hub UserPusher, logger *logging.Logger) *InAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &InAppSender{hub: hub, logger: logger}
}

// Send marks in-app delivery and pushes to live connections if any.
func (s *InAppSender) Send(ctx context.Context, n *Notification) error {
	if s.hub != nil {
		if s.hub.PushToUser(n.RecipientID, n) {
			s.logger.Debug("in-app notification pushed to live connection", "recipient_id", n.RecipientID, "notification_id", n.ID)
		}
	}
	return nil
}

var _ Sender = (*InAppSender)(nil)
