package mainconfig

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/mediconnect/telehealth-platform/internal/config"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

func TestBuildEmailChannel(t *testing.T) {
	directory := users.NewInMemoryRepository()
	logger := logging.Default()

	tests := []struct {
		name string
		cfg  *appconfig.Config
		want bool
	}{
		{
			name: "unconfigured",
			cfg:  &appconfig.Config{EmailProvider: "auto"},
			want: false,
		},
		{
			name: "sendgrid",
			cfg: &appconfig.Config{
				EmailProvider:     "sendgrid",
				SendGridAPIKey:    "SG.test",
				SendGridFromEmail: "noreply@example.com",
			},
			want: true,
		},
		{
			name: "sendgrid selected but no key",
			cfg:  &appconfig.Config{EmailProvider: "sendgrid"},
			want: false,
		},
		{
			name: "ses",
			cfg: &appconfig.Config{
				EmailProvider: "ses",
				SESFromEmail:  "noreply@example.com",
			},
			want: true,
		},
		{
			name: "auto falls back to ses",
			cfg: &appconfig.Config{
				EmailProvider: "auto",
				SESFromEmail:  "noreply@example.com",
			},
			want: true,
		},
		{
			name: "unknown provider",
			cfg: &appconfig.Config{
				EmailProvider:  "smoke-signals",
				SendGridAPIKey: "SG.test",
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := BuildEmailChannel(tt.cfg, aws.Config{}, directory, logger)
			if got := sender != nil; got != tt.want {
				t.Errorf("BuildEmailChannel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildSMSChannel(t *testing.T) {
	directory := users.NewInMemoryRepository()
	logger := logging.Default()

	tests := []struct {
		name string
		cfg  *appconfig.Config
		want bool
	}{
		{
			name: "stub",
			cfg:  &appconfig.Config{SMSProvider: "stub"},
			want: true,
		},
		{
			name: "twilio configured",
			cfg: &appconfig.Config{
				SMSProvider:      "twilio",
				TwilioAccountSID: "AC123",
				TwilioAuthToken:  "token",
				TwilioFromNumber: "+15550001111",
			},
			want: true,
		},
		{
			name: "twilio without credentials",
			cfg:  &appconfig.Config{SMSProvider: "twilio"},
			want: false,
		},
		{
			name: "unknown provider",
			cfg:  &appconfig.Config{SMSProvider: "carrier-pigeon"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := BuildSMSChannel(tt.cfg, directory, logger)
			if got := sender != nil; got != tt.want {
				t.Errorf("BuildSMSChannel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildPushChannel(t *testing.T) {
	directory := users.NewInMemoryRepository()
	logger := logging.Default()

	if sender := BuildPushChannel(&appconfig.Config{}, directory, logger); sender != nil {
		t.Errorf("BuildPushChannel without server key = %T, want nil", sender)
	}
	if sender := BuildPushChannel(&appconfig.Config{FCMServerKey: "key"}, directory, logger); sender == nil {
		t.Error("BuildPushChannel with server key = nil, want a sender")
	}
}

// The builders must hand back the address-resolving channel adapters,
// not the raw vendor clients: a delivery to a user with no phone number
// fails at the adapter instead of reaching the vendor API.
func TestBuiltChannelResolvesRecipient(t *testing.T) {
	directory := users.NewInMemoryRepository()
	logger := logging.Default()

	u, err := directory.Create(t.Context(), &users.CreateUserRequest{
		Name:  "No Phone",
		Email: "nophone@example.com",
		Role:  users.RolePatient,
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	sender := BuildSMSChannel(&appconfig.Config{SMSProvider: "stub"}, directory, logger)
	if sender == nil {
		t.Fatal("BuildSMSChannel = nil")
	}

	err = sender.Send(t.Context(), &notifications.Notification{
		RecipientID: u.ID,
		Title:       "Reminder",
		Message:     "Your appointment is tomorrow",
	})
	if err == nil {
		t.Error("Send to user without phone number succeeded, want error")
	}
}
