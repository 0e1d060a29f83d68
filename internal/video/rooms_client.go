package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

var roomsTracer = otel.Tracer("mediconnect.internal.video.rooms_client")

// RoomsClient talks to an HTTP video-rooms API (Daily/Whereby-style):
// POST /rooms, DELETE /rooms/{id}, POST /rooms/{id}/tokens. Bearer auth.
type RoomsClient struct {
	baseURL    string
	apiKey     string
	roomExpiry time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// Config holds the rooms API settings.
type Config struct {
	BaseURL    string
	APIKey     string
	RoomExpiry time.Duration
}

// NewRoomsClient creates the client. Returns nil when no API key is
// configured so the caller can fall back to the stub.
func NewRoomsClient(cfg Config, logger *logging.Logger) *RoomsClient {
	if cfg.APIKey == "" || cfg.BaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RoomExpiry <= 0 {
		cfg.RoomExpiry = 2 * time.Hour
	}
	return &RoomsClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		roomExpiry: cfg.RoomExpiry,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

type createRoomRequest struct {
	Name      string `json:"name"`
	ExpiresAt int64  `json:"expires_at"`
}

type roomResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCall provisions one room named after the appointment.
func (c *RoomsClient) CreateCall(ctx context.Context, appointmentID string) (*Call, error) {
	if appointmentID == "" {
		return nil, errors.New("video: appointment id required")
	}

	ctx, span := roomsTracer.Start(ctx, "video.rooms.create")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.appointment_id", appointmentID))

	expiresAt := time.Now().Add(c.roomExpiry)
	var parsed roomResponse
	if err := c.do(ctx, http.MethodPost, "/rooms", createRoomRequest{
		Name:      "appt-" + appointmentID,
		ExpiresAt: expiresAt.Unix(),
	}, &parsed); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.logger.Info("video room created", "appointment_id", appointmentID, "call_id", parsed.ID)
	return &Call{ID: parsed.ID, URL: parsed.URL, ExpiresAt: expiresAt}, nil
}

// EndCall tears the room down. The API returns the session summary on
// deletion.
func (c *RoomsClient) EndCall(ctx context.Context, callID string) (*SessionSummary, error) {
	if callID == "" {
		return nil, errors.New("video: call id required")
	}

	ctx, span := roomsTracer.Start(ctx, "video.rooms.end")
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.call_id", callID))

	var summary SessionSummary
	if err := c.do(ctx, http.MethodDelete, "/rooms/"+callID, nil, &summary); err != nil {
		span.RecordError(err)
		return nil, err
	}
	summary.CallID = callID
	return &summary, nil
}

type tokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// GenerateToken mints a join token for one participant.
func (c *RoomsClient) GenerateToken(ctx context.Context, callID, userID, role string) (string, error) {
	if callID == "" || userID == "" {
		return "", errors.New("video: call id and user id required")
	}

	var parsed tokenResponse
	if err := c.do(ctx, http.MethodPost, "/rooms/"+callID+"/tokens", tokenRequest{UserID: userID, Role: role}, &parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", errors.New("video: rooms api returned empty token")
	}
	return parsed.Token, nil
}

func (c *RoomsClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("video: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("video: rooms api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("rooms api returned error status", "method", method, "path", path, "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("video: rooms api returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("video: decode response: %w", err)
		}
	}
	return nil
}

var _ Provider = (*RoomsClient)(nil)
