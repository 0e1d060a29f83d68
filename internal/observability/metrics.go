package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics instruments the notification fan-out. All methods
// are safe on a nil receiver so callers never need to branch on whether
// metrics are wired.
type NotificationMetrics struct {
	created    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	fanout     prometheus.Histogram
}

// NewNotificationMetrics registers the notification collectors.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &NotificationMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications created, by type.",
		}, []string{"type"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Channel delivery attempts, by channel and outcome.",
		}, []string{"channel", "status"}),
		fanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediconnect",
			Subsystem: "notifications",
			Name:      "fanout_duration_seconds",
			Help:      "Wall time of one notification's channel fan-out.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(m.created, m.deliveries, m.fanout)
	return m
}

// RecordCreated counts one created notification.
func (m *NotificationMetrics) RecordCreated(notificationType string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(notificationType).Inc()
}

// RecordDelivery counts one channel attempt outcome.
func (m *NotificationMetrics) RecordDelivery(channel, status string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, status).Inc()
}

// ObserveFanout records how long one fan-out took.
func (m *NotificationMetrics) ObserveFanout(seconds float64) {
	if m == nil {
		return
	}
	m.fanout.Observe(seconds)
}

// AppointmentMetrics instruments the appointment lifecycle. Nil-safe
// like NotificationMetrics.
type AppointmentMetrics struct {
	transitions *prometheus.CounterVec
	conflicts   prometheus.Counter
	reminders   prometheus.Counter
}

// NewAppointmentMetrics registers the appointment collectors.
func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &AppointmentMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions, by from and to state.",
		}, []string{"from", "to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected by the conflict window.",
		}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications emitted by the sweep.",
		}),
	}
	reg.MustRegister(m.transitions, m.conflicts, m.reminders)
	return m
}

// RecordTransition counts one status change.
func (m *AppointmentMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordConflict counts one rejected booking.
func (m *AppointmentMetrics) RecordConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// RecordReminder counts one emitted reminder.
func (m *AppointmentMetrics) RecordReminder() {
	if m == nil {
		return
	}
	m.reminders.Inc()
}
