package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the slice of the pgxpool API the repository needs.
// *pgxpool.Pool satisfies it, as does pgxmock in tests.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores appointments in PostgreSQL.
type PostgresRepository struct {
	db PgxQuerier
}

// NewPostgresRepository creates a PostgreSQL-backed repository.
func NewPostgresRepository(db PgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, appointment_date, duration_minutes,
	consultation_type, status, symptoms, specialization, fee, payment_status,
	video_call_id, video_call_url, cancel_reason, prescription, patient_rating,
	doctor_rating, created_at, updated_at`

var activeStatuses = []string{string(StatusScheduled), string(StatusConfirmed), string(StatusInProgress)}

// Create inserts the appointment.
func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) error {
	prescription, patientRating, doctorRating, err := encodeSubdocs(a)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, duration_minutes,
			consultation_type, status, symptoms, specialization, fee, payment_status,
			video_call_id, video_call_url, cancel_reason, prescription, patient_rating,
			doctor_rating, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		a.ID, a.PatientID, a.DoctorID, a.AppointmentDate, a.DurationMinutes,
		string(a.ConsultationType), string(a.Status), a.Symptoms, a.Specialization,
		a.Fee, string(a.PaymentStatus), a.VideoCallID, a.VideoCallURL, a.CancelReason,
		prescription, patientRating, doctorRating, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

// GetByID fetches one appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`,
		id,
	)
	return scanAppointment(row)
}

// Update overwrites the mutable fields of the appointment.
func (r *PostgresRepository) Update(ctx context.Context, a *Appointment) error {
	prescription, patientRating, doctorRating, err := encodeSubdocs(a)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $2, duration_minutes = $3, status = $4,
			payment_status = $5, video_call_id = $6, video_call_url = $7,
			cancel_reason = $8, prescription = $9, patient_rating = $10,
			doctor_rating = $11, updated_at = $12
		WHERE id = $1`,
		a.ID, a.AppointmentDate, a.DurationMinutes, string(a.Status),
		string(a.PaymentStatus), a.VideoCallID, a.VideoCallURL, a.CancelReason,
		prescription, patientRating, doctorRating, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveByDoctor returns the doctor's active appointments in [from, to).
func (r *PostgresRepository) ListActiveByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
			AND status = ANY($2)
			AND appointment_date >= $3 AND appointment_date < $4
		ORDER BY appointment_date ASC`,
		doctorID, activeStatuses, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return collectAppointments(rows)
}

// ListByUser returns appointments where the user is a party.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]*Appointment, error) {
	where := []string{"(patient_id = $1 OR doctor_id = $1)"}
	args := []any{userID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where = append(where, fmt.Sprintf("appointment_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where = append(where, fmt.Sprintf("appointment_date <= $%d", len(args)))
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE %s
		ORDER BY appointment_date ASC`, strings.Join(where, " AND ")),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list user appointments: %w", err)
	}
	return collectAppointments(rows)
}

// ListActiveBetween returns every active appointment in [from, to).
func (r *PostgresRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = ANY($1)
			AND appointment_date >= $2 AND appointment_date < $3
		ORDER BY appointment_date ASC`,
		activeStatuses, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	out := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan appointments: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a            Appointment
		prescription []byte
		patient      []byte
		doctor       []byte
	)
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.DurationMinutes,
		&a.ConsultationType, &a.Status, &a.Symptoms, &a.Specialization, &a.Fee,
		&a.PaymentStatus, &a.VideoCallID, &a.VideoCallURL, &a.CancelReason,
		&prescription, &patient, &doctor, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	if len(prescription) > 0 {
		a.Prescription = &Prescription{}
		if err := json.Unmarshal(prescription, a.Prescription); err != nil {
			return nil, fmt.Errorf("decode prescription: %w", err)
		}
	}
	if len(patient) > 0 {
		a.PatientRating = &Rating{}
		if err := json.Unmarshal(patient, a.PatientRating); err != nil {
			return nil, fmt.Errorf("decode patient rating: %w", err)
		}
	}
	if len(doctor) > 0 {
		a.DoctorRating = &Rating{}
		if err := json.Unmarshal(doctor, a.DoctorRating); err != nil {
			return nil, fmt.Errorf("decode doctor rating: %w", err)
		}
	}
	return &a, nil
}

func encodeSubdocs(a *Appointment) (prescription, patientRating, doctorRating []byte, err error) {
	if a.Prescription != nil {
		if prescription, err = json.Marshal(a.Prescription); err != nil {
			return nil, nil, nil, fmt.Errorf("encode prescription: %w", err)
		}
	}
	if a.PatientRating != nil {
		if patientRating, err = json.Marshal(a.PatientRating); err != nil {
			return nil, nil, nil, fmt.Errorf("encode patient rating: %w", err)
		}
	}
	if a.DoctorRating != nil {
		if doctorRating, err = json.Marshal(a.DoctorRating); err != nil {
			return nil, nil, nil, fmt.Errorf("encode doctor rating: %w", err)
		}
	}
	return prescription, patientRating, doctorRating, nil
}

var _ Repository = (*PostgresRepository)(nil)
