package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediconnect/telehealth-platform/internal/appointments"
	httpmiddleware "github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.New("error")
	userRepo := users.NewInMemoryRepository()

	notifSvc := notifications.NewService(notifications.NewInMemoryRepository(), notifications.NewRegistry(), logger)
	apptSvc := appointments.NewService(appointments.NewInMemoryRepository(), userRepo, notifSvc, nil, nil, logger)

	return New(&Config{
		Logger:               logger,
		UsersHandler:         users.NewHandler(userRepo, logger),
		AppointmentsHandler:  appointments.NewHandler(apptSvc, logger),
		NotificationsHandler: notifications.NewHandler(notifSvc, logger),
		AuthSecret:           testSecret,
	})
}

func TestHealthEndpointIsPublic(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}
}

func TestPrivateRoutesAcceptSignedToken(t *testing.T) {
	r := newTestRouter(t)

	token, err := httpmiddleware.SignToken(testSecret, "user-1", "patient", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestPrivateRoutesRejectBadSignature(t *testing.T) {
	r := newTestRouter(t)

	token, err := httpmiddleware.SignToken("wrong-secret", "user-1", "patient", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with forged token = %d, want 401", rec.Code)
	}
}
