package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for appointment storage.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// ListActiveByDoctor returns the doctor's active appointments whose
	// date falls in [from, to), soonest first.
	ListActiveByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*Appointment, error)
	// ListByUser returns appointments where the user is patient or
	// doctor, soonest first.
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]*Appointment, error)
	// ListActiveBetween returns every active appointment whose date
	// falls in [from, to). Feeds the reminder sweep.
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error)
}

// InMemoryRepository is an in-memory implementation of Repository,
// used in tests and when no database is configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*Appointment)}
}

// Create stores the appointment.
func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[a.ID] = cloneAppointment(a)
	return nil
}

// GetByID returns the appointment.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAppointment(a), nil
}

// Update overwrites the stored appointment.
func (r *InMemoryRepository) Update(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[a.ID]; !ok {
		return ErrNotFound
	}
	r.records[a.ID] = cloneAppointment(a)
	return nil
}

// ListActiveByDoctor returns the doctor's active appointments in [from, to).
func (r *InMemoryRepository) ListActiveByDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.records {
		if a.DoctorID != doctorID || !a.Status.Active() {
			continue
		}
		if a.AppointmentDate.Before(from) || !a.AppointmentDate.Before(to) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sortByDate(out)
	return out, nil
}

// ListByUser returns appointments where the user is a party.
func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.records {
		if !a.Involves(userID) {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && a.AppointmentDate.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && a.AppointmentDate.After(*filter.DateTo) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sortByDate(out)
	return out, nil
}

// ListActiveBetween returns every active appointment in [from, to).
func (r *InMemoryRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.records {
		if !a.Status.Active() {
			continue
		}
		if a.AppointmentDate.Before(from) || !a.AppointmentDate.Before(to) {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sortByDate(out)
	return out, nil
}

func sortByDate(list []*Appointment) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].AppointmentDate.Before(list[j].AppointmentDate)
	})
}

func cloneAppointment(a *Appointment) *Appointment {
	clone := *a
	if a.Prescription != nil {
		p := *a.Prescription
		clone.Prescription = &p
	}
	if a.PatientRating != nil {
		pr := *a.PatientRating
		clone.PatientRating = &pr
	}
	if a.DoctorRating != nil {
		dr := *a.DoctorRating
		clone.DoctorRating = &dr
	}
	return &clone
}

var _ Repository = (*InMemoryRepository)(nil)
