package mainconfig

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/mediconnect/telehealth-platform/internal/config"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

// BuildEmailChannel picks the configured email vendor and wraps it in
// the channel adapter that resolves recipient addresses through the
// user directory. "auto" prefers SendGrid when an API key is present,
// then falls back to SES.
func BuildEmailChannel(cfg *appconfig.Config, awsCfg aws.Config, directory notifications.UserLookup, logger *logging.Logger) notifications.Sender {
	vendor := emailVendor(cfg, awsCfg, logger)
	if vendor == nil {
		return nil
	}
	if ch := notifications.NewEmailChannel(vendor, directory, cfg.PublicBaseURL, logger); ch != nil {
		return ch
	}
	return nil
}

func emailVendor(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notifications.EmailSender {
	sendgrid := func() notifications.EmailSender {
		if s := notifications.NewSendGridSender(notifications.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}
	ses := func() notifications.EmailSender {
		if cfg.SESFromEmail == "" {
			return nil
		}
		if s := notifications.NewSESSender(sesv2.NewFromConfig(awsCfg), notifications.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			return s
		}
		return nil
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		return sendgrid()
	case "ses":
		return ses()
	case "auto":
		if s := sendgrid(); s != nil {
			return s
		}
		return ses()
	default:
		return nil
	}
}

// BuildSMSChannel picks the configured SMS vendor and wraps it in the
// channel adapter that resolves recipient phone numbers.
func BuildSMSChannel(cfg *appconfig.Config, directory notifications.UserLookup, logger *logging.Logger) notifications.Sender {
	var vendor notifications.SMSSender
	switch cfg.SMSProvider {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
			logger.Warn("twilio selected but not configured, SMS disabled")
			return nil
		}
		vendor = notifications.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	case "stub":
		vendor = notifications.NewStubSMSSender(logger)
	default:
		return nil
	}

	if ch := notifications.NewSMSChannel(vendor, directory, logger); ch != nil {
		return ch
	}
	return nil
}

// BuildPushChannel wires FCM behind the channel adapter that resolves
// recipient device tokens. Returns nil when no server key is set.
func BuildPushChannel(cfg *appconfig.Config, directory notifications.UserLookup, logger *logging.Logger) notifications.Sender {
	fcm := notifications.NewFCMSender(cfg.FCMServerKey, logger)
	if fcm == nil {
		return nil
	}
	if ch := notifications.NewPushChannel(fcm, directory, logger); ch != nil {
		return ch
	}
	return nil
}
