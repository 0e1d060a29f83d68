package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mediconnect/telehealth-platform/internal/appointments"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

type capturingNotifier struct {
	mu   sync.Mutex
	sent []notifications.CreateRequest
}

func (n *capturingNotifier) Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return &notifications.Notification{ID: "n"}, nil
}

func seedAppointment(t *testing.T, repo *appointments.InMemoryRepository, fee int64) *appointments.Appointment {
	t.Helper()
	a := &appointments.Appointment{
		ID:               "appt-1",
		PatientID:        "patient-1",
		DoctorID:         "doc-1",
		AppointmentDate:  time.Now().UTC().Add(48 * time.Hour),
		DurationMinutes:  30,
		ConsultationType: appointments.ConsultationVideo,
		Status:           appointments.StatusScheduled,
		Fee:              fee,
		PaymentStatus:    appointments.PaymentPending,
	}
	if err := repo.Create(t.Context(), a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func TestRecordPaymentSuccess(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	seedAppointment(t, repo, 5000)
	gateway := NewFakeGateway()
	notifier := &capturingNotifier{}
	svc := NewService(repo, gateway, notifier, logging.New("error"))

	receipt, err := svc.RecordPayment(t.Context(), "appt-1", "patient-1", 5000, "USD")
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if !receipt.Succeeded || receipt.TransactionID == "" {
		t.Errorf("receipt = %+v, want success with transaction id", receipt)
	}

	a, _ := repo.GetByID(t.Context(), "appt-1")
	if a.PaymentStatus != appointments.PaymentPaid {
		t.Errorf("payment status = %q, want paid", a.PaymentStatus)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != notifications.TypePaymentReceived {
		t.Errorf("notifications = %+v, want one payment_received", notifier.sent)
	}
	if len(gateway.Charges()) != 1 {
		t.Errorf("gateway charges = %d, want 1", len(gateway.Charges()))
	}
}

func TestRecordPaymentAmountMismatch(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	seedAppointment(t, repo, 5000)
	svc := NewService(repo, NewFakeGateway(), &capturingNotifier{}, logging.New("error"))

	if _, err := svc.RecordPayment(t.Context(), "appt-1", "patient-1", 4000, "USD"); !errors.Is(err, ErrAmountMismatch) {
		t.Errorf("RecordPayment = %v, want ErrAmountMismatch", err)
	}

	a, _ := repo.GetByID(t.Context(), "appt-1")
	if a.PaymentStatus != appointments.PaymentPending {
		t.Errorf("payment status mutated on mismatch: %q", a.PaymentStatus)
	}
}

func TestRecordPaymentGatewayFailure(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	seedAppointment(t, repo, 5000)
	gateway := NewFakeGateway()
	gateway.FailWith = errors.New("card declined")
	notifier := &capturingNotifier{}
	svc := NewService(repo, gateway, notifier, logging.New("error"))

	receipt, err := svc.RecordPayment(t.Context(), "appt-1", "patient-1", 5000, "USD")
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if receipt.Succeeded {
		t.Error("receipt marked succeeded despite declined charge")
	}
	if receipt.FailureReason != "card declined" {
		t.Errorf("failure reason = %q", receipt.FailureReason)
	}

	a, _ := repo.GetByID(t.Context(), "appt-1")
	if a.PaymentStatus != appointments.PaymentFailed {
		t.Errorf("payment status = %q, want failed", a.PaymentStatus)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != notifications.TypePaymentFailed {
		t.Errorf("notifications = %+v, want one payment_failed", notifier.sent)
	}
}

func TestRecordPaymentOnlyPatientMayPay(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	seedAppointment(t, repo, 5000)
	svc := NewService(repo, NewFakeGateway(), &capturingNotifier{}, logging.New("error"))

	if _, err := svc.RecordPayment(t.Context(), "appt-1", "doc-1", 5000, "USD"); !errors.Is(err, appointments.ErrNotFound) {
		t.Errorf("RecordPayment by doctor = %v, want ErrNotFound", err)
	}
}

func TestRecordPaymentRejectsDoublePayment(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	seedAppointment(t, repo, 5000)
	svc := NewService(repo, NewFakeGateway(), &capturingNotifier{}, logging.New("error"))

	if _, err := svc.RecordPayment(t.Context(), "appt-1", "patient-1", 5000, "USD"); err != nil {
		t.Fatalf("first RecordPayment: %v", err)
	}
	if _, err := svc.RecordPayment(t.Context(), "appt-1", "patient-1", 5000, "USD"); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("second RecordPayment = %v, want ErrAlreadyPaid", err)
	}
}
