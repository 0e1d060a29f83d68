package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// PushSender sends mobile push messages to a device token.
type PushSender interface {
	SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// PushChannel adapts a PushSender into a notification channel.
type PushChannel struct {
	sender PushSender
	users  UserLookup
	logger *logging.Logger
}

// NewPushChannel wires the push channel. Returns nil when no sender is
// configured.
func NewPushChannel(sender PushSender, directory UserLookup, logger *logging.Logger) *PushChannel {
	if sender == nil || directory == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PushChannel{sender: sender, users: directory, logger: logger}
}

// Send resolves the recipient's device token and delivers the push.
func (c *PushChannel) Send(ctx context.Context, n *Notification) error {
	user, err := c.users.FindByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if user.PushToken == "" {
		return fmt.Errorf("recipient %s has no registered device", n.RecipientID)
	}
	return c.sender.SendPush(ctx, user.PushToken, n.Title, n.Message, n.Data)
}

var _ Sender = (*PushChannel)(nil)

// FCMSender posts push messages to the Firebase Cloud Messaging HTTP API.
type FCMSender struct {
	serverKey  string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewFCMSender creates an FCM-backed push sender. Returns nil when no
// server key is configured.
func NewFCMSender(serverKey string, logger *logging.Logger) *FCMSender {
	if serverKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FCMSender{
		serverKey: serverKey,
		endpoint:  "https://fcm.googleapis.com/fcm/send",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type fcmPayload struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SendPush delivers one push message.
func (s *FCMSender) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if deviceToken == "" {
		return errors.New("notifications: device token required")
	}

	raw, err := json.Marshal(fcmPayload{
		To:           deviceToken,
		Notification: fcmNotification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("notifications: encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notifications: fcm send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Error("fcm returned error status", "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("notifications: fcm returned status %d", resp.StatusCode)
	}

	s.logger.Info("push sent via fcm", "title", title)
	return nil
}

// StubPushSender is a no-op sender for testing.
type StubPushSender struct {
	logger *logging.Logger
}

// NewStubPushSender creates a stub push sender.
func NewStubPushSender(logger *logging.Logger) *StubPushSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubPushSender{logger: logger}
}

// SendPush logs but doesn't send.
func (s *StubPushSender) SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	s.logger.Info("stub push sender: would send", "title", title)
	return nil
}

// Ensure interface compliance
var _ PushSender = (*FCMSender)(nil)
var _ PushSender = (*StubPushSender)(nil)
