// The scheduler runs the periodic jobs: the appointment reminder sweep
// and the expired-notification cleanup. It shares the delivery stack
// with the API server but opens no HTTP port.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mediconnect/telehealth-platform/cmd/mainconfig"
	"github.com/mediconnect/telehealth-platform/internal/appointments"
	appconfig "github.com/mediconnect/telehealth-platform/internal/config"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth-platform scheduler",
		"reminder_cron", cfg.ReminderCronSpec,
		"cleanup_cron", cfg.CleanupCronSpec,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required, the scheduler has no in-memory mode")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	userRepo := users.NewPostgresRepository(pool)

	// Reminders go out over email/SMS/push only: there is no websocket
	// hub here, so in-app records are persisted without a live push.
	channels := notifications.NewRegistry()
	channels.Register(notifications.ChannelInApp, notifications.NewInAppSender(nil, logger))
	if email := mainconfig.BuildEmailChannel(cfg, awsCfg, userRepo, logger); email != nil {
		channels.Register(notifications.ChannelEmail, email)
	}
	if sms := mainconfig.BuildSMSChannel(cfg, userRepo, logger); sms != nil {
		channels.Register(notifications.ChannelSMS, sms)
	}
	if push := mainconfig.BuildPushChannel(cfg, userRepo, logger); push != nil {
		channels.Register(notifications.ChannelPush, push)
	}

	notifRepo := notifications.NewPostgresRepository(pool)
	notifService := notifications.NewService(notifRepo, channels, logger,
		notifications.WithTTL(cfg.NotificationTTL),
	)

	apptRepo := appointments.NewPostgresRepository(pool)
	apptService := appointments.NewService(apptRepo, userRepo, notifService, nil, nil, logger)

	reminderWindow := time.Duration(cfg.ReminderWindowHours) * time.Hour

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReminderCronSpec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		sent, err := apptService.SendReminders(jobCtx, reminderWindow)
		if err != nil {
			logger.Error("reminder sweep failed", "error", err)
			return
		}
		logger.Info("reminder sweep complete", "sent", sent)
	}); err != nil {
		logger.Error("failed to schedule reminder sweep", "error", err)
		os.Exit(1)
	}

	if _, err := c.AddFunc(cfg.CleanupCronSpec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		removed, err := notifService.CleanupExpired(jobCtx)
		if err != nil {
			logger.Error("notification cleanup failed", "error", err)
			return
		}
		logger.Info("notification cleanup complete", "removed", removed)
	}); err != nil {
		logger.Error("failed to schedule notification cleanup", "error", err)
		os.Exit(1)
	}

	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping scheduler...")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
