package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect/telehealth-platform/internal/appointments"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

var (
	// ErrAmountMismatch is returned when the charged amount does not
	// equal the appointment fee.
	ErrAmountMismatch = errors.New("payments: amount does not match appointment fee")

	// ErrAlreadyPaid is returned when the appointment fee is already
	// settled.
	ErrAlreadyPaid = errors.New("payments: appointment already paid")
)

// Gateway charges a payment method. Implementations wrap a real
// processor; FakeGateway serves development and tests.
type Gateway interface {
	Charge(ctx context.Context, amount int64, currency, reference string) (transactionID string, err error)
}

// Notifier emits payment notifications; the notifications service
// implements it.
type Notifier interface {
	Create(ctx context.Context, req notifications.CreateRequest) (*notifications.Notification, error)
}

// Receipt records the outcome of one charge attempt.
type Receipt struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointment_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Succeeded     bool      `json:"succeeded"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service settles appointment fees through the gateway and updates the
// appointment's payment status.
type Service struct {
	appointments appointments.Repository
	gateway      Gateway
	notifier     Notifier
	logger       *logging.Logger

	now func() time.Time
}

// NewService creates the payment service.
func NewService(repo appointments.Repository, gateway Gateway, notifier Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		appointments: repo,
		gateway:      gateway,
		notifier:     notifier,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RecordPayment charges the appointment fee for the acting patient.
// The amount must match the appointment fee exactly; partial payments
// are not supported.
func (s *Service) RecordPayment(ctx context.Context, appointmentID, actingUserID string, amount int64, currency string) (*Receipt, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.PatientID != actingUserID {
		return nil, appointments.ErrNotFound
	}
	if a.PaymentStatus == appointments.PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if amount != a.Fee {
		return nil, fmt.Errorf("%w: charged %d, fee %d", ErrAmountMismatch, amount, a.Fee)
	}
	if currency == "" {
		currency = "USD"
	}

	receipt := &Receipt{
		ID:            uuid.NewString(),
		AppointmentID: a.ID,
		Amount:        amount,
		Currency:      currency,
		CreatedAt:     s.now(),
	}

	txID, chargeErr := s.gateway.Charge(ctx, amount, currency, a.ID)
	if chargeErr != nil {
		receipt.FailureReason = chargeErr.Error()
		a.PaymentStatus = appointments.PaymentFailed
	} else {
		receipt.TransactionID = txID
		receipt.Succeeded = true
		a.PaymentStatus = appointments.PaymentPaid
	}

	a.UpdatedAt = s.now()
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("persist payment status: %w", err)
	}

	if chargeErr != nil {
		s.notify(ctx, notifications.CreateRequest{
			RecipientID: a.PatientID,
			Type:        notifications.TypePaymentFailed,
			Priority:    notifications.PriorityHigh,
			Title:       "Payment failed",
			Message:     fmt.Sprintf("Your payment of %d %s for the appointment could not be processed.", amount, currency),
			ActionURL:   "/appointments/" + a.ID,
			ActionText:  "Retry payment",
		})
		s.logger.Warn("payment failed", "appointment_id", a.ID, "error", chargeErr)
		return receipt, nil
	}

	s.notify(ctx, notifications.CreateRequest{
		RecipientID: a.PatientID,
		Type:        notifications.TypePaymentReceived,
		Title:       "Payment received",
		Message:     fmt.Sprintf("Your payment of %d %s has been received. Thank you.", amount, currency),
		ActionURL:   "/appointments/" + a.ID,
		ActionText:  "View appointment",
	})
	s.logger.Info("payment recorded", "appointment_id", a.ID, "transaction_id", txID)
	return receipt, nil
}

func (s *Service) notify(ctx context.Context, req notifications.CreateRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, req); err != nil {
		s.logger.Error("payment notification failed", "recipient_id", req.RecipientID, "error", err)
	}
}
