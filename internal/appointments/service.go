package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/observability"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/internal/video"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Notifier emits notifications for lifecycle events. The notifications
// service implements it; emission failures are logged, never fatal to
// the appointment mutation.
type Notifier interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
}

// UserDirectory resolves users for role validation at creation time.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// Service owns the appointment state machine and its side effects.
type Service struct {
	repo     Repository
	slots    *SlotResolver
	users    UserDirectory
	notifier Notifier
	video    video.Provider
	metrics  *observability.AppointmentMetrics
	logger   *logging.Logger

	// now is swapped in tests for deterministic clock behavior.
	now func() time.Time
}

// NewService creates the appointment service. notifier and videoProvider
// may be nil; the corresponding side effects are then skipped.
func NewService(repo Repository, directory UserDirectory, notifier Notifier, videoProvider video.Provider, metrics *observability.AppointmentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		slots:    NewSlotResolver(repo),
		users:    directory,
		notifier: notifier,
		video:    videoProvider,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Slots exposes the resolver for the availability endpoint.
func (s *Service) Slots() *SlotResolver {
	return s.slots
}

// Create books a new appointment in scheduled status and notifies both
// parties. The conflict check and the insert are not atomic; the
// database's partial unique index on the doctor's active slot backstops
// the race.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	patient, err := s.users.FindByID(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	if patient.Role != users.RolePatient {
		return nil, &ValidationError{Field: "patient_id", Reason: "user is not a patient"}
	}
	doctor, err := s.users.FindByID(ctx, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}
	if doctor.Role != users.RoleDoctor {
		return nil, &ValidationError{Field: "doctor_id", Reason: "user is not a doctor"}
	}

	now := s.now()
	if !req.AppointmentDate.After(now) {
		return nil, &ValidationError{Field: "appointment_date", Reason: "must be in the future"}
	}

	conflict, err := s.slots.FindConflict(ctx, req.DoctorID, req.AppointmentDate, "")
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if conflict != nil {
		s.metrics.RecordConflict()
		return nil, fmt.Errorf("%w: existing appointment at %s", ErrSlotConflict, conflict.AppointmentDate.Format(time.RFC3339))
	}

	specialization := req.Specialization
	if specialization == "" {
		specialization = doctor.Specialization
	}

	a := &Appointment{
		ID:               uuid.New().String(),
		PatientID:        req.PatientID,
		DoctorID:         req.DoctorID,
		AppointmentDate:  req.AppointmentDate,
		DurationMinutes:  req.DurationMinutes,
		ConsultationType: req.ConsultationType,
		Status:           StatusScheduled,
		Symptoms:         req.Symptoms,
		Specialization:   specialization,
		Fee:              req.Fee,
		PaymentStatus:    PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	when := a.AppointmentDate.Format("Mon, 2 Jan 2006 15:04 MST")
	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.DoctorID,
		SenderID:    a.PatientID,
		Type:        notifications.TypeAppointmentScheduled,
		Title:       "New appointment scheduled",
		Message:     fmt.Sprintf("%s booked a %s consultation on %s.", patient.Name, a.ConsultationType, when),
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View appointment",
	})
	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.PatientID,
		SenderID:    a.DoctorID,
		Type:        notifications.TypeAppointmentScheduled,
		Title:       "Appointment scheduled",
		Message:     fmt.Sprintf("Your %s consultation with Dr. %s is scheduled for %s.", a.ConsultationType, doctor.Name, when),
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View appointment",
	})

	s.logger.Info("appointment created",
		"appointment_id", a.ID,
		"patient_id", a.PatientID,
		"doctor_id", a.DoctorID,
		"date", a.AppointmentDate,
	)
	return a, nil
}

// Get loads one appointment, restricted to its parties.
func (s *Service) Get(ctx context.Context, id, actingUserID string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(actingUserID) {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns the acting user's appointments.
func (s *Service) List(ctx context.Context, actingUserID string, filter ListFilter) ([]*Appointment, error) {
	return s.repo.ListByUser(ctx, actingUserID, filter)
}

// TransitionStatus moves the appointment to newStatus and runs the
// transition's side effects. Transitioning to the current status is a
// no-op that succeeds without a notification.
func (s *Service) TransitionStatus(ctx context.Context, id string, newStatus Status, actingUserID string) (*Appointment, error) {
	if !newStatus.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(actingUserID) {
		return nil, ErrNotFound
	}
	if a.Status == newStatus {
		return a, nil
	}
	if a.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStatus, a.Status)
	}

	previous := a.Status

	// Video rooms are provisioned on confirmation. A provisioning
	// failure does not block the transition; the room can be re-created
	// by re-confirming or handled operationally.
	if newStatus == StatusConfirmed && a.ConsultationType == ConsultationVideo && s.video != nil {
		call, err := s.video.CreateCall(ctx, a.ID)
		if err != nil {
			s.logger.Error("video call provisioning failed", "appointment_id", a.ID, "error", err)
		} else {
			a.VideoCallID = call.ID
			a.VideoCallURL = call.URL
		}
	}

	if newStatus.Terminal() && a.VideoCallID != "" && s.video != nil {
		if _, err := s.video.EndCall(ctx, a.VideoCallID); err != nil {
			s.logger.Warn("video call teardown failed", "appointment_id", a.ID, "call_id", a.VideoCallID, "error", err)
		}
	}

	a.Status = newStatus
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}
	s.metrics.RecordTransition(string(previous), string(newStatus))

	s.notifyTransition(ctx, a, actingUserID)

	s.logger.Info("appointment status changed",
		"appointment_id", a.ID,
		"from", previous,
		"to", newStatus,
		"acting_user_id", actingUserID,
	)
	return a, nil
}

// Cancel cancels the appointment if the cancellation window allows it.
func (s *Service) Cancel(ctx context.Context, id, actingUserID, reason string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(actingUserID) {
		return nil, ErrNotFound
	}
	if !a.CanBeCancelled(s.now()) {
		return nil, ErrCannotCancel
	}

	previous := a.Status
	if a.VideoCallID != "" && s.video != nil {
		if _, err := s.video.EndCall(ctx, a.VideoCallID); err != nil {
			s.logger.Warn("video call teardown failed", "appointment_id", a.ID, "call_id", a.VideoCallID, "error", err)
		}
	}

	a.Status = StatusCancelled
	a.CancelReason = reason
	a.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}
	s.metrics.RecordTransition(string(previous), string(StatusCancelled))

	message := "The appointment has been cancelled."
	if reason != "" {
		message = fmt.Sprintf("The appointment has been cancelled. Reason: %s", reason)
	}
	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.Counterpart(actingUserID),
		SenderID:    actingUserID,
		Type:        notifications.TypeAppointmentCancelled,
		Priority:    notifications.PriorityHigh,
		Title:       "Appointment cancelled",
		Message:     message,
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View appointment",
	})

	s.logger.Info("appointment cancelled", "appointment_id", a.ID, "acting_user_id", actingUserID)
	return a, nil
}

// AddPrescription attaches the doctor's prescription and notifies the
// patient. Only the appointment's doctor may call it.
func (s *Service) AddPrescription(ctx context.Context, id, actingUserID string, p Prescription) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(actingUserID) {
		return nil, ErrNotFound
	}
	if a.DoctorID != actingUserID {
		return nil, ErrForbidden
	}

	now := s.now()
	p.IssuedAt = &now
	a.Prescription = &p
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist prescription: %w", err)
	}

	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.PatientID,
		SenderID:    a.DoctorID,
		Type:        notifications.TypePrescriptionReady,
		Title:       "Prescription ready",
		Message:     "Your doctor has issued a prescription for your recent consultation.",
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View prescription",
	})
	return a, nil
}

// AddRating records one party's rating of the other. Allowed only on
// completed appointments.
func (s *Service) AddRating(ctx context.Context, id, actingUserID string, score int, comment string) (*Appointment, error) {
	if score < 1 || score > 5 {
		return nil, &ValidationError{Field: "score", Reason: "must be between 1 and 5"}
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Involves(actingUserID) {
		return nil, ErrNotFound
	}
	if a.Status != StatusCompleted {
		return nil, ErrForbidden
	}

	now := s.now()
	rating := &Rating{Score: score, Comment: comment, RatedAt: &now}
	if actingUserID == a.PatientID {
		a.PatientRating = rating
	} else {
		a.DoctorRating = rating
	}
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist rating: %w", err)
	}
	return a, nil
}

// VideoJoinToken mints a join token for a party of a confirmed or
// in-progress video appointment.
func (s *Service) VideoJoinToken(ctx context.Context, id, actingUserID string) (string, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !a.Involves(actingUserID) {
		return "", ErrNotFound
	}
	if a.VideoCallID == "" || s.video == nil {
		return "", fmt.Errorf("%w: no video call provisioned", ErrForbidden)
	}

	role := "patient"
	if actingUserID == a.DoctorID {
		role = "doctor"
	}
	return s.video.GenerateToken(ctx, a.VideoCallID, actingUserID, role)
}

// SendReminders notifies both parties of every active appointment
// starting within the window. There is no de-duplication: running the
// sweep twice re-notifies.
func (s *Service) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		window = CancellationWindow
	}
	now := s.now()

	upcoming, err := s.repo.ListActiveBetween(ctx, now, now.Add(window))
	if err != nil {
		return 0, fmt.Errorf("list upcoming appointments: %w", err)
	}

	sent := 0
	for _, a := range upcoming {
		when := a.AppointmentDate.Format("Mon, 2 Jan 2006 15:04 MST")
		for _, recipient := range []string{a.PatientID, a.DoctorID} {
			s.notify(ctx, notifications.CreateRequest{
				RecipientID: recipient,
				Type:        notifications.TypeAppointmentReminder,
				Priority:    notifications.PriorityHigh,
				Title:       "Upcoming appointment",
				Message:     fmt.Sprintf("Reminder: your %s consultation starts %s.", a.ConsultationType, when),
				ActionURL:   "/appointments/" + a.ID,
				ActionText:  "View appointment",
			})
			s.metrics.RecordReminder()
			sent++
		}
	}

	if sent > 0 {
		s.logger.Info("appointment reminders sent", "appointments", len(upcoming), "notifications", sent)
	}
	return sent, nil
}

// notifyTransition tells the counterpart party about a status change.
func (s *Service) notifyTransition(ctx context.Context, a *Appointment, actingUserID string) {
	var (
		typ     notifications.Type
		title   string
		message string
	)
	switch a.Status {
	case StatusConfirmed:
		typ = notifications.TypeAppointmentConfirmed
		title = "Appointment confirmed"
		message = fmt.Sprintf("Your appointment on %s has been confirmed.", a.AppointmentDate.Format("Mon, 2 Jan 2006 15:04 MST"))
	case StatusCancelled:
		typ = notifications.TypeAppointmentCancelled
		title = "Appointment cancelled"
		message = "The appointment has been cancelled."
	case StatusInProgress:
		if a.ConsultationType == ConsultationVideo {
			typ = notifications.TypeVideoCallStarting
			title = "Video call starting"
			message = "Your consultation is starting. Join the call now."
		} else {
			typ = notifications.TypeGeneral
			title = "Consultation started"
			message = "Your consultation is now in progress."
		}
	case StatusCompleted:
		typ = notifications.TypeGeneral
		title = "Appointment completed"
		message = "Your appointment has been completed. Thank you."
	case StatusNoShow:
		typ = notifications.TypeGeneral
		title = "Appointment marked as no-show"
		message = "The appointment was marked as a no-show."
	default:
		return
	}

	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.Counterpart(actingUserID),
		SenderID:    actingUserID,
		Type:        typ,
		Title:       title,
		Message:     message,
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View appointment",
	})
}

// notify emits one notification, logging instead of failing: a
// notification problem never rolls back an appointment mutation.
func (s *Service) notify(ctx context.Context, req notifications.CreateRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, req); err != nil {
		s.logger.Error("notification emission failed",
			"recipient_id", req.RecipientID,
			"type", req.Type,
			"error", err,
		)
	}
}
