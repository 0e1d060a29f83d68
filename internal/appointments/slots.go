package appointments

import (
	"context"
	"time"
)

// slotTemplate is the fixed daily set of half-hour start times offered
// for booking: a morning block and an afternoon block. Doctor-specific
// templates are an extension point, not implemented here.
var slotTemplate = buildSlotTemplate()

func buildSlotTemplate() []time.Duration {
	var slots []time.Duration
	add := func(startHour, startMin, endHour, endMin int) {
		start := time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute
		end := time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute
		for at := start; at <= end; at += SlotWidth {
			slots = append(slots, at)
		}
	}
	add(9, 0, 11, 30)
	add(14, 0, 18, 30)
	return slots
}

// Slot is one bookable half-hour start time.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotResolver computes booking availability and detects scheduling
// conflicts for a doctor.
type SlotResolver struct {
	repo Repository
	now  func() time.Time
}

// NewSlotResolver creates a resolver over the appointment store.
func NewSlotResolver(repo Repository) *SlotResolver {
	return &SlotResolver{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// FindConflict returns the first appointment for the doctor with status
// scheduled or confirmed whose date lies within the conflict window of
// candidate, excluding excludeID if non-empty. Returns nil when the
// slot is free.
func (s *SlotResolver) FindConflict(ctx context.Context, doctorID string, candidate time.Time, excludeID string) (*Appointment, error) {
	from := candidate.Add(-ConflictWindow)
	to := candidate.Add(ConflictWindow + time.Nanosecond)
	existing, err := s.repo.ListActiveByDoctor(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.ID == excludeID {
			continue
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		return a, nil
	}
	return nil, nil
}

// AvailableSlots returns the template slots on the given day that do not
// overlap any active appointment of the doctor, dropping slots already
// in the past when the day is today. The day is interpreted in date's
// location.
func (s *SlotResolver) AvailableSlots(ctx context.Context, doctorID string, date time.Time) ([]Slot, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	booked, err := s.repo.ListActiveByDoctor(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dayStart.Year() == now.Year() && dayStart.YearDay() == now.YearDay()

	available := []Slot{}
	for _, offset := range slotTemplate {
		slotStart := dayStart.Add(offset)
		slotEnd := slotStart.Add(SlotWidth)

		if today && !slotStart.After(now) {
			continue
		}
		if overlapsAny(slotStart, slotEnd, booked) {
			continue
		}
		available = append(available, Slot{Start: slotStart, End: slotEnd})
	}
	return available, nil
}

// overlapsAny reports whether [slotStart, slotEnd) intersects any
// appointment's [start, start+duration) interval.
func overlapsAny(slotStart, slotEnd time.Time, booked []*Appointment) bool {
	for _, a := range booked {
		if slotStart.Before(a.End()) && a.AppointmentDate.Before(slotEnd) {
			return true
		}
	}
	return false
}
