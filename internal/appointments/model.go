package appointments

import (
	"strings"
	"time"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// Valid reports whether the status is part of the fixed enumeration.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the appointment still occupies its slot.
// Active appointments block conflicting bookings and receive reminders.
func (s Status) Active() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// ConsultationType is how the consultation is held.
type ConsultationType string

const (
	ConsultationVideo    ConsultationType = "video"
	ConsultationPhone    ConsultationType = "phone"
	ConsultationInPerson ConsultationType = "in-person"
)

// Valid reports whether the consultation type is known.
func (c ConsultationType) Valid() bool {
	switch c {
	case ConsultationVideo, ConsultationPhone, ConsultationInPerson:
		return true
	}
	return false
}

// PaymentStatus tracks the fee settlement for an appointment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

const (
	// ConflictWindow is how close two bookings for the same doctor may
	// sit: a new booking within ±30 minutes of an active one is rejected.
	ConflictWindow = 30 * time.Minute
	// SlotWidth is the nominal width of one bookable slot.
	SlotWidth = 30 * time.Minute
	// CancellationWindow is the minimum lead time for a cancellation.
	CancellationWindow = 24 * time.Hour

	MinDurationMinutes     = 15
	MaxDurationMinutes     = 120
	DefaultDurationMinutes = 30
)

// Prescription is the doctor's post-consultation note set.
type Prescription struct {
	Medications  string     `json:"medications,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
}

// Rating is one party's post-completion score of the other.
type Rating struct {
	Score   int        `json:"score"`
	Comment string     `json:"comment,omitempty"`
	RatedAt *time.Time `json:"rated_at,omitempty"`
}

// Appointment is one booking between a patient and a doctor.
type Appointment struct {
	ID               string           `json:"id"`
	PatientID        string           `json:"patient_id"`
	DoctorID         string           `json:"doctor_id"`
	AppointmentDate  time.Time        `json:"appointment_date"`
	DurationMinutes  int              `json:"duration_minutes"`
	ConsultationType ConsultationType `json:"consultation_type"`
	Status           Status           `json:"status"`
	Symptoms         string           `json:"symptoms,omitempty"`
	Specialization   string           `json:"specialization,omitempty"`
	Fee              int64            `json:"fee"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	VideoCallID      string           `json:"video_call_id,omitempty"`
	VideoCallURL     string           `json:"video_call_url,omitempty"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	Prescription     *Prescription    `json:"prescription,omitempty"`
	PatientRating    *Rating          `json:"patient_rating,omitempty"`
	DoctorRating     *Rating          `json:"doctor_rating,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// End returns when the appointment's booked interval finishes.
func (a *Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// CanBeCancelled reports whether the appointment may still be cancelled
// at the given instant: only scheduled/confirmed appointments with more
// than the cancellation window remaining.
func (a *Appointment) CanBeCancelled(now time.Time) bool {
	if a.Status != StatusScheduled && a.Status != StatusConfirmed {
		return false
	}
	return a.AppointmentDate.Sub(now) > CancellationWindow
}

// Involves reports whether userID is a party to the appointment.
func (a *Appointment) Involves(userID string) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// Counterpart returns the other party's user id.
func (a *Appointment) Counterpart(userID string) string {
	if a.PatientID == userID {
		return a.DoctorID
	}
	return a.PatientID
}

// CreateRequest is the input to Service.Create.
type CreateRequest struct {
	PatientID        string           `json:"patient_id"`
	DoctorID         string           `json:"doctor_id"`
	AppointmentDate  time.Time        `json:"appointment_date"`
	DurationMinutes  int              `json:"duration_minutes,omitempty"`
	ConsultationType ConsultationType `json:"consultation_type"`
	Symptoms         string           `json:"symptoms,omitempty"`
	Specialization   string           `json:"specialization,omitempty"`
	Fee              int64            `json:"fee"`
}

// Validate checks field-level constraints and fills the default
// duration. Role and existence checks against the user directory happen
// in the service.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	if strings.TrimSpace(r.DoctorID) == "" {
		return &ValidationError{Field: "doctor_id", Reason: "required"}
	}
	if r.PatientID == r.DoctorID {
		return &ValidationError{Field: "doctor_id", Reason: "patient and doctor must differ"}
	}
	if r.AppointmentDate.IsZero() {
		return &ValidationError{Field: "appointment_date", Reason: "required"}
	}
	if r.DurationMinutes == 0 {
		r.DurationMinutes = DefaultDurationMinutes
	}
	if r.DurationMinutes < MinDurationMinutes || r.DurationMinutes > MaxDurationMinutes {
		return &ValidationError{Field: "duration_minutes", Reason: "must be between 15 and 120"}
	}
	if !r.ConsultationType.Valid() {
		return &ValidationError{Field: "consultation_type", Reason: "unknown consultation type"}
	}
	if r.Fee < 0 {
		return &ValidationError{Field: "fee", Reason: "must not be negative"}
	}
	return nil
}

// ListFilter narrows an appointment listing.
type ListFilter struct {
	Status   *Status
	DateFrom *time.Time
	DateTo   *time.Time
}
