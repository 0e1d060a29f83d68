package notifications

import (
	"net/url"
	"strings"
	"time"
)

// Type classifies what a notification is about.
type Type string

const (
	TypeAppointmentScheduled Type = "appointment_scheduled"
	TypeAppointmentConfirmed Type = "appointment_confirmed"
	TypeAppointmentCancelled Type = "appointment_cancelled"
	TypeAppointmentReminder  Type = "appointment_reminder"
	TypePaymentReceived      Type = "payment_received"
	TypePaymentFailed        Type = "payment_failed"
	TypePrescriptionReady    Type = "prescription_ready"
	TypeDoctorVerified       Type = "doctor_verified"
	TypeAccountActivated     Type = "account_activated"
	TypeVideoCallStarting    Type = "video_call_starting"
	TypeSystemMaintenance    Type = "system_maintenance"
	TypeGeneral              Type = "general"
)

var knownTypes = map[Type]struct{}{
	TypeAppointmentScheduled: {},
	TypeAppointmentConfirmed: {},
	TypeAppointmentCancelled: {},
	TypeAppointmentReminder:  {},
	TypePaymentReceived:      {},
	TypePaymentFailed:        {},
	TypePrescriptionReady:    {},
	TypeDoctorVerified:       {},
	TypeAccountActivated:     {},
	TypeVideoCallStarting:    {},
	TypeSystemMaintenance:    {},
	TypeGeneral:              {},
}

// Valid reports whether the type is part of the fixed enumeration.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Priority orders notifications for client display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is known.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Channel is a delivery medium with its own success/failure outcome.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid reports whether the channel is part of the fixed set.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

const (
	// MaxTitleLength bounds the title field.
	MaxTitleLength = 200
	// MaxMessageLength bounds the message body.
	MaxMessageLength = 1000
	// DefaultTTL is how long a notification lives before the expiry
	// sweep may remove it.
	DefaultTTL = 30 * 24 * time.Hour
)

// ChannelDelivery records the terminal outcome of one channel attempt.
// Delivered=false with a populated Error means the attempt failed; there
// is no in-core retry.
type ChannelDelivery struct {
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Notification is the durable record of one fan-out, with per-channel
// delivery status. It references but does not own users or appointments.
type Notification struct {
	ID          string                      `json:"id"`
	RecipientID string                      `json:"recipient_id"`
	SenderID    string                      `json:"sender_id,omitempty"`
	Type        Type                        `json:"type"`
	Priority    Priority                    `json:"priority"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Data        map[string]string           `json:"data,omitempty"`
	Channels    []Channel                   `json:"channels"`
	Delivery    map[Channel]ChannelDelivery `json:"delivery_status"`
	IsRead      bool                        `json:"is_read"`
	ReadAt      *time.Time                  `json:"read_at,omitempty"`
	ActionURL   string                      `json:"action_url,omitempty"`
	ActionText  string                      `json:"action_text,omitempty"`
	ExpiresAt   time.Time                   `json:"expires_at"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// CreateRequest is the input to Service.Create.
type CreateRequest struct {
	RecipientID string            `json:"recipient_id"`
	SenderID    string            `json:"sender_id,omitempty"`
	Type        Type              `json:"type"`
	Priority    Priority          `json:"priority,omitempty"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
	Channels    []Channel         `json:"channels,omitempty"`
	ActionURL   string            `json:"action_url,omitempty"`
	ActionText  string            `json:"action_text,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// Validate checks the request and fills defaults (priority medium,
// channels [in_app]). It runs before any persistence.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.RecipientID) == "" {
		return &ValidationError{Field: "recipient_id", Reason: "required"}
	}
	if !r.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown notification type"}
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if len(r.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "exceeds 200 characters"}
	}
	if strings.TrimSpace(r.Message) == "" {
		return &ValidationError{Field: "message", Reason: "required"}
	}
	if len(r.Message) > MaxMessageLength {
		return &ValidationError{Field: "message", Reason: "exceeds 1000 characters"}
	}
	if len(r.Channels) == 0 {
		r.Channels = []Channel{ChannelInApp}
	}
	seen := make(map[Channel]struct{}, len(r.Channels))
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return &ValidationError{Field: "channels", Reason: "unknown channel " + string(ch)}
		}
		if _, dup := seen[ch]; dup {
			return &ValidationError{Field: "channels", Reason: "duplicate channel " + string(ch)}
		}
		seen[ch] = struct{}{}
	}
	if r.ActionURL != "" && !validActionURL(r.ActionURL) {
		return &ValidationError{Field: "action_url", Reason: "must be an absolute URL or begin with /"}
	}
	return nil
}

// validActionURL accepts absolute http(s) URLs and site-relative paths.
func validActionURL(raw string) bool {
	if strings.HasPrefix(raw, "/") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// ListFilter narrows a recipient's notification page.
type ListFilter struct {
	Type     *Type
	Priority *Priority
	IsRead   *bool
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

func (f *ListFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
}

// Stats aggregates a recipient's notifications.
type Stats struct {
	Total      int              `json:"total"`
	Unread     int              `json:"unread"`
	ByType     map[Type]int     `json:"by_type"`
	ByPriority map[Priority]int `json:"by_priority"`
}

// ListResult is one page of notifications. TotalCount respects the
// filter; UnreadCount is the recipient's global unread badge count and
// ignores the filter.
type ListResult struct {
	Notifications []*Notification `json:"notifications"`
	TotalCount    int             `json:"total_count"`
	UnreadCount   int             `json:"unread_count"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
