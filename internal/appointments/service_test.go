package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/internal/video"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

type capturingNotifier struct {
	mu   sync.Mutex
	sent []notifications.CreateRequest
	err  error
}

func (n *capturingNotifier) Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, req)
	return &notifications.Notification{ID: "n", RecipientID: req.RecipientID, Type: req.Type}, nil
}

func (n *capturingNotifier) all() []notifications.CreateRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.CreateRequest(nil), n.sent...)
}

func (n *capturingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type fixture struct {
	svc      *Service
	repo     *InMemoryRepository
	notifier *capturingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewInMemoryRepository()
	directory := users.NewInMemoryRepository()
	directory.Seed(&users.User{ID: "patient-1", Name: "Ada Park", Role: users.RolePatient})
	directory.Seed(&users.User{ID: "doc-1", Name: "Grace Obi", Role: users.RoleDoctor, Specialization: "cardiology"})
	directory.Seed(&users.User{ID: "admin-1", Name: "Root", Role: users.RoleAdmin})

	notifier := &capturingNotifier{}
	svc := NewService(repo, directory, notifier, video.NewStubProvider(logging.New("error")), nil, logging.New("error"))

	f := &fixture{svc: svc, repo: repo, notifier: notifier, now: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.now }
	svc.slots.now = svc.now
	return f
}

func (f *fixture) validRequest() CreateRequest {
	return CreateRequest{
		PatientID:        "patient-1",
		DoctorID:         "doc-1",
		AppointmentDate:  f.now.Add(72 * time.Hour),
		ConsultationType: ConsultationVideo,
		Symptoms:         "persistent cough",
		Fee:              5000,
	}
}

func TestCreateSchedulesAndNotifiesBothParties(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %q, want scheduled", a.Status)
	}
	if a.PaymentStatus != PaymentPending {
		t.Errorf("payment status = %q, want pending", a.PaymentStatus)
	}
	if a.DurationMinutes != DefaultDurationMinutes {
		t.Errorf("duration = %d, want default %d", a.DurationMinutes, DefaultDurationMinutes)
	}
	if a.Specialization != "cardiology" {
		t.Errorf("specialization = %q, want doctor's default", a.Specialization)
	}

	sent := f.notifier.all()
	if len(sent) != 2 {
		t.Fatalf("notifications = %d, want 2", len(sent))
	}
	recipients := map[string]bool{}
	for _, req := range sent {
		if req.Type != notifications.TypeAppointmentScheduled {
			t.Errorf("notification type = %q, want appointment_scheduled", req.Type)
		}
		if req.ActionURL != "/appointments/"+a.ID {
			t.Errorf("action url = %q", req.ActionURL)
		}
		recipients[req.RecipientID] = true
	}
	if !recipients["patient-1"] || !recipients["doc-1"] {
		t.Errorf("recipients = %v, want both parties", recipients)
	}
}

func TestCreateRejectsRoleMismatch(t *testing.T) {
	f := newFixture(t)

	req := f.validRequest()
	req.DoctorID = "admin-1"
	if _, err := f.svc.Create(t.Context(), req); !IsValidation(err) {
		t.Errorf("Create with non-doctor = %v, want validation error", err)
	}

	req = f.validRequest()
	req.PatientID = "doc-1"
	req.DoctorID = "patient-1"
	if _, err := f.svc.Create(t.Context(), req); !IsValidation(err) {
		t.Errorf("Create with swapped roles = %v, want validation error", err)
	}
}

func TestCreateRejectsPastDate(t *testing.T) {
	f := newFixture(t)

	req := f.validRequest()
	req.AppointmentDate = f.now.Add(-time.Hour)
	if _, err := f.svc.Create(t.Context(), req); !IsValidation(err) {
		t.Errorf("Create in the past = %v, want validation error", err)
	}

	req.AppointmentDate = f.now
	if _, err := f.svc.Create(t.Context(), req); !IsValidation(err) {
		t.Errorf("Create at exactly now = %v, want validation error", err)
	}
}

func TestCreateRejectsSlotConflict(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	for _, offset := range []time.Duration{0, 15 * time.Minute, -ConflictWindow, ConflictWindow} {
		req := f.validRequest()
		req.AppointmentDate = first.AppointmentDate.Add(offset)
		if _, err := f.svc.Create(t.Context(), req); !errors.Is(err, ErrSlotConflict) {
			t.Errorf("Create at offset %v = %v, want ErrSlotConflict", offset, err)
		}
	}

	req := f.validRequest()
	req.AppointmentDate = first.AppointmentDate.Add(ConflictWindow + time.Minute)
	if _, err := f.svc.Create(t.Context(), req); err != nil {
		t.Errorf("Create outside window = %v, want success", err)
	}
}

func TestConfirmVideoAppointmentProvisionsCall(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.notifier.reset()

	confirmed, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusConfirmed, "doc-1")
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if confirmed.VideoCallID == "" || confirmed.VideoCallURL == "" {
		t.Errorf("video call not provisioned: id=%q url=%q", confirmed.VideoCallID, confirmed.VideoCallURL)
	}

	sent := f.notifier.all()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].RecipientID != "patient-1" {
		t.Errorf("recipient = %q, want counterpart patient", sent[0].RecipientID)
	}
	if sent[0].Type != notifications.TypeAppointmentConfirmed {
		t.Errorf("type = %q, want appointment_confirmed", sent[0].Type)
	}
}

func TestConfirmNonVideoSkipsProvisioning(t *testing.T) {
	f := newFixture(t)

	req := f.validRequest()
	req.ConsultationType = ConsultationPhone
	a, err := f.svc.Create(t.Context(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	confirmed, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusConfirmed, "doc-1")
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if confirmed.VideoCallID != "" {
		t.Errorf("phone consultation got a video call: %q", confirmed.VideoCallID)
	}
}

func TestTransitionToSameStatusIsNoop(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.notifier.reset()

	same, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusScheduled, "doc-1")
	if err != nil {
		t.Fatalf("TransitionStatus to current status: %v", err)
	}
	if same.Status != StatusScheduled {
		t.Errorf("status = %q", same.Status)
	}
	if len(f.notifier.all()) != 0 {
		t.Error("no-op transition emitted a notification")
	}
}

func TestTransitionOutOfTerminalStateFails(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, st := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		if _, err := f.svc.TransitionStatus(t.Context(), a.ID, st, "doc-1"); err != nil {
			t.Fatalf("TransitionStatus(%s): %v", st, err)
		}
	}

	if _, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusScheduled, "doc-1"); !errors.Is(err, ErrTerminalStatus) {
		t.Errorf("transition out of completed = %v, want ErrTerminalStatus", err)
	}
}

func TestTransitionRequiresParticipant(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusConfirmed, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Errorf("transition by stranger = %v, want ErrNotFound", err)
	}
}

func TestCancelWindowBoundary(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Exactly 24h remaining: not cancellable.
	f.now = a.AppointmentDate.Add(-CancellationWindow)
	if _, err := f.svc.Cancel(t.Context(), a.ID, "patient-1", ""); !errors.Is(err, ErrCannotCancel) {
		t.Errorf("Cancel at exactly 24h = %v, want ErrCannotCancel", err)
	}

	// 24h + 1s remaining: cancellable.
	f.now = a.AppointmentDate.Add(-CancellationWindow - time.Second)
	cancelled, err := f.svc.Cancel(t.Context(), a.ID, "patient-1", "feeling better")
	if err != nil {
		t.Fatalf("Cancel at 24h+1s = %v, want success", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelReason != "feeling better" {
		t.Errorf("reason = %q", cancelled.CancelReason)
	}

	sent := f.notifier.all()
	last := sent[len(sent)-1]
	if last.RecipientID != "doc-1" || last.Type != notifications.TypeAppointmentCancelled {
		t.Errorf("cancellation notification = %+v, want appointment_cancelled to doctor", last)
	}
}

func TestCancelledSlotFreesTheWindow(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Cancel(t.Context(), a.ID, "patient-1", ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := f.svc.Create(t.Context(), f.validRequest()); err != nil {
		t.Errorf("rebooking a cancelled slot = %v, want success", err)
	}
}

func TestAddPrescriptionDoctorOnly(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.notifier.reset()

	if _, err := f.svc.AddPrescription(t.Context(), a.ID, "patient-1", Prescription{Medications: "rest"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("patient adding prescription = %v, want ErrForbidden", err)
	}

	updated, err := f.svc.AddPrescription(t.Context(), a.ID, "doc-1", Prescription{Medications: "amoxicillin", Instructions: "3x daily"})
	if err != nil {
		t.Fatalf("AddPrescription: %v", err)
	}
	if updated.Prescription == nil || updated.Prescription.IssuedAt == nil {
		t.Fatal("prescription not recorded")
	}

	sent := f.notifier.all()
	if len(sent) != 1 || sent[0].Type != notifications.TypePrescriptionReady || sent[0].RecipientID != "patient-1" {
		t.Errorf("notifications = %+v, want one prescription_ready to patient", sent)
	}
}

func TestAddRatingRequiresCompletion(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.AddRating(t.Context(), a.ID, "patient-1", 5, "great"); !errors.Is(err, ErrForbidden) {
		t.Errorf("rating a scheduled appointment = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.AddRating(t.Context(), a.ID, "patient-1", 9, ""); !IsValidation(err) {
		t.Errorf("out-of-range score = %v, want validation error", err)
	}

	for _, st := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		if _, err := f.svc.TransitionStatus(t.Context(), a.ID, st, "doc-1"); err != nil {
			t.Fatalf("TransitionStatus(%s): %v", st, err)
		}
	}

	rated, err := f.svc.AddRating(t.Context(), a.ID, "patient-1", 5, "great care")
	if err != nil {
		t.Fatalf("AddRating: %v", err)
	}
	if rated.PatientRating == nil || rated.PatientRating.Score != 5 {
		t.Errorf("patient rating = %+v", rated.PatientRating)
	}
	if rated.DoctorRating != nil {
		t.Error("doctor rating set by patient's call")
	}
}

func TestSendRemindersNotifiesBothPartiesAndRepeats(t *testing.T) {
	f := newFixture(t)

	soon := f.validRequest()
	soon.AppointmentDate = f.now.Add(6 * time.Hour)
	if _, err := f.svc.Create(t.Context(), soon); err != nil {
		t.Fatalf("Create soon: %v", err)
	}
	far := f.validRequest()
	far.AppointmentDate = f.now.Add(72 * time.Hour)
	if _, err := f.svc.Create(t.Context(), far); err != nil {
		t.Fatalf("Create far: %v", err)
	}
	f.notifier.reset()

	sent, err := f.svc.SendReminders(t.Context(), 24*time.Hour)
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2 (both parties of the near appointment)", sent)
	}
	for _, req := range f.notifier.all() {
		if req.Type != notifications.TypeAppointmentReminder {
			t.Errorf("type = %q, want appointment_reminder", req.Type)
		}
	}

	// No de-duplication: a second sweep notifies again.
	sent, err = f.svc.SendReminders(t.Context(), 24*time.Hour)
	if err != nil {
		t.Fatalf("second SendReminders: %v", err)
	}
	if sent != 2 {
		t.Errorf("second sweep sent = %d, want 2", sent)
	}
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("notification store down")

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create with failing notifier = %v, want success", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %q", a.Status)
	}
}

func TestVideoJoinToken(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.VideoJoinToken(t.Context(), a.ID, "patient-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("token before provisioning = %v, want ErrForbidden", err)
	}

	if _, err := f.svc.TransitionStatus(t.Context(), a.ID, StatusConfirmed, "doc-1"); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	token, err := f.svc.VideoJoinToken(t.Context(), a.ID, "patient-1")
	if err != nil {
		t.Fatalf("VideoJoinToken: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}

	if _, err := f.svc.VideoJoinToken(t.Context(), a.ID, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Errorf("token for stranger = %v, want ErrNotFound", err)
	}
}
