package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediconnect/telehealth-platform/internal/appointments"
	httpmiddleware "github.com/mediconnect/telehealth-platform/internal/http/middleware"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/payments"
	"github.com/mediconnect/telehealth-platform/internal/realtime"
	"github.com/mediconnect/telehealth-platform/internal/symptoms"
	"github.com/mediconnect/telehealth-platform/internal/uploads"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	UsersHandler         *users.Handler
	AppointmentsHandler  *appointments.Handler
	NotificationsHandler *notifications.Handler
	PaymentsHandler      *payments.Handler
	UploadsHandler       *uploads.Handler
	SymptomsHandler      *symptoms.Handler
	Hub                  *realtime.Hub
	MetricsHandler       http.Handler
	AuthSecret           string
	CORSAllowedOrigins   []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.UsersHandler != nil {
			public.Route("/api/v1/users", cfg.UsersHandler.Routes)
		}
	})

	// Authenticated API
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(cfg.AuthSecret))

		if cfg.Hub != nil {
			private.Get("/ws", cfg.Hub.HandleWS)
		}
		private.Route("/api/v1", func(api chi.Router) {
			if cfg.AppointmentsHandler != nil {
				api.Route("/appointments", cfg.AppointmentsHandler.Routes)
			}
			if cfg.NotificationsHandler != nil {
				api.Route("/notifications", cfg.NotificationsHandler.Routes)
			}
			if cfg.PaymentsHandler != nil {
				api.Route("/payments", cfg.PaymentsHandler.Routes)
			}
			if cfg.UploadsHandler != nil {
				api.Route("/reports", cfg.UploadsHandler.Routes)
			}
			if cfg.SymptomsHandler != nil {
				api.Post("/symptoms/analyze", cfg.SymptomsHandler.Analyze)
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
