package appointments

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

func (f *fixture) serve(t *testing.T, userID, role string, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(f.svc, logging.New("error"))
	r := chi.NewRouter()
	r.Route("/appointments", h.Routes)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), middleware.UserClaims{UserID: userID, Role: role}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAppointmentHTTP(t *testing.T) {
	f := newFixture(t)

	body := `{"doctor_id":"doc-1","appointment_date":"2026-09-04T09:00:00Z","consultation_type":"video","symptoms":"persistent cough","fee":5000}`
	rec := f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"scheduled"`)
	assert.Contains(t, rec.Body.String(), `"patient_id":"patient-1"`)
}

func TestCreateAppointmentHTTPForcesPatientIdentity(t *testing.T) {
	f := newFixture(t)

	// A patient cannot book on behalf of someone else.
	body := `{"patient_id":"patient-9","doctor_id":"doc-1","appointment_date":"2026-09-04T09:00:00Z","consultation_type":"phone"}`
	rec := f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"patient_id":"patient-1"`)
}

func TestCreateAppointmentHTTPConflict(t *testing.T) {
	f := newFixture(t)

	body := `{"doctor_id":"doc-1","appointment_date":"2026-09-04T09:00:00Z","consultation_type":"video"}`
	rec := f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAvailableSlotsHTTP(t *testing.T) {
	f := newFixture(t)

	rec := f.serve(t, "patient-1", "patient", http.MethodGet, "/appointments/doctors/doc-1/slots?date=2026-09-04", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"doctor_id":"doc-1"`)

	rec = f.serve(t, "patient-1", "patient", http.MethodGet, "/appointments/doctors/doc-1/slots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionStatusHTTP(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	require.NoError(t, err)

	rec := f.serve(t, "doc-1", "doctor", http.MethodPatch, "/appointments/"+a.ID+"/status", `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"confirmed"`)

	// A stranger sees 404, not 403, to avoid leaking existence.
	rec = f.serve(t, "patient-9", "patient", http.MethodPatch, "/appointments/"+a.ID+"/status", `{"status":"in-progress"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelHTTPInsideWindow(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.Create(t.Context(), f.validRequest())
	require.NoError(t, err)

	// Move to one hour before the appointment: past the 24h cutoff.
	f.now = a.AppointmentDate.Add(-time.Hour)

	rec := f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments/"+a.ID+"/cancel", `{"reason":"feeling better"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRunRemindersHTTPAdminOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(t.Context(), f.validRequest())
	require.NoError(t, err)

	rec := f.serve(t, "patient-1", "patient", http.MethodPost, "/appointments/reminders/run?window_hours=96", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.serve(t, "admin-1", "admin", http.MethodPost, "/appointments/reminders/run?window_hours=96", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"sent":2`)

	rec = f.serve(t, "admin-1", "admin", http.MethodPost, "/appointments/reminders/run?window_hours=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
