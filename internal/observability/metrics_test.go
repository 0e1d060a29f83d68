package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var metric *dto.Metric
		for _, metric = range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestNotificationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotificationMetrics(reg)
	m.RecordCreated("appointment_reminder")
	m.RecordDelivery("email", "delivered")
	m.RecordDelivery("sms", "failed")
	m.ObserveFanout(0.25)

	if got := counterValue(t, reg, "mediconnect_notifications_created_total"); got != 1 {
		t.Errorf("created_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "mediconnect_notifications_deliveries_total"); got != 2 {
		t.Errorf("deliveries_total = %v, want 2", got)
	}
}

func TestNotificationMetricsNilSafe(t *testing.T) {
	var m *NotificationMetrics
	m.RecordCreated("general")
	m.RecordDelivery("in_app", "delivered")
	m.ObserveFanout(0.1)
}

func TestAppointmentMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAppointmentMetrics(reg)
	m.RecordTransition("scheduled", "confirmed")
	m.RecordConflict()
	m.RecordReminder()
	m.RecordReminder()

	if got := counterValue(t, reg, "mediconnect_appointments_reminders_sent_total"); got != 2 {
		t.Errorf("reminders_sent_total = %v, want 2", got)
	}
}

func TestAppointmentMetricsNilSafe(t *testing.T) {
	var m *AppointmentMetrics
	m.RecordTransition("scheduled", "cancelled")
	m.RecordConflict()
	m.RecordReminder()
}
