package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/telehealth-platform/cmd/mainconfig"
	"github.com/mediconnect/telehealth-platform/internal/api/router"
	"github.com/mediconnect/telehealth-platform/internal/appointments"
	appconfig "github.com/mediconnect/telehealth-platform/internal/config"
	"github.com/mediconnect/telehealth-platform/internal/notifications"
	"github.com/mediconnect/telehealth-platform/internal/observability"
	"github.com/mediconnect/telehealth-platform/internal/payments"
	"github.com/mediconnect/telehealth-platform/internal/realtime"
	"github.com/mediconnect/telehealth-platform/internal/symptoms"
	"github.com/mediconnect/telehealth-platform/internal/uploads"
	"github.com/mediconnect/telehealth-platform/internal/users"
	"github.com/mediconnect/telehealth-platform/internal/video"
	"github.com/mediconnect/telehealth-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Repositories: Postgres when configured, in-memory otherwise.
	var (
		userRepo  users.Repository
		apptRepo  appointments.Repository
		notifRepo notifications.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		userRepo = users.NewPostgresRepository(pool)
		apptRepo = appointments.NewPostgresRepository(pool)
		notifRepo = notifications.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		userRepo = users.NewInMemoryRepository()
		apptRepo = appointments.NewInMemoryRepository()
		notifRepo = notifications.NewInMemoryRepository()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	notifMetrics := observability.NewNotificationMetrics(registry)
	apptMetrics := observability.NewAppointmentMetrics(registry)

	// Delivery channels
	hub := realtime.NewHub(logger)
	channels := notifications.NewRegistry()
	channels.Register(notifications.ChannelInApp, notifications.NewInAppSender(hub, logger))

	if email := mainconfig.BuildEmailChannel(cfg, awsCfg, userRepo, logger); email != nil {
		channels.Register(notifications.ChannelEmail, email)
	}
	if sms := mainconfig.BuildSMSChannel(cfg, userRepo, logger); sms != nil {
		channels.Register(notifications.ChannelSMS, sms)
	}
	if push := mainconfig.BuildPushChannel(cfg, userRepo, logger); push != nil {
		channels.Register(notifications.ChannelPush, push)
	}

	// Notification service
	notifOpts := []notifications.ServiceOption{
		notifications.WithMetrics(notifMetrics),
		notifications.WithTTL(cfg.NotificationTTL),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			TLSConfig: redisTLS(cfg.RedisTLS),
		})
		defer redisClient.Close()
		notifOpts = append(notifOpts, notifications.WithUnreadCache(
			notifications.NewUnreadCache(redisClient, cfg.UnreadCacheTTL),
		))
	}
	notifService := notifications.NewService(notifRepo, channels, logger, notifOpts...)

	// Video call provisioning
	var videoProvider video.Provider
	if cfg.VideoProvider == "rooms" {
		if rooms := video.NewRoomsClient(video.Config{
			BaseURL:    cfg.VideoAPIBaseURL,
			APIKey:     cfg.VideoAPIKey,
			RoomExpiry: cfg.VideoRoomExpiry,
		}, logger); rooms != nil {
			videoProvider = rooms
		}
	}
	if videoProvider == nil {
		videoProvider = video.NewStubProvider(logger)
	}

	apptService := appointments.NewService(apptRepo, userRepo, notifService, videoProvider, apptMetrics, logger)
	paymentService := payments.NewService(apptRepo, payments.NewFakeGateway(), notifService, logger)

	// Medical report storage
	var reportStore uploads.Store
	if cfg.ReportsBucket != "" {
		reportStore = uploads.NewS3Store(s3.NewFromConfig(awsCfg), cfg.ReportsBucket, logger)
	} else {
		reportStore = uploads.NewMemoryStore()
	}

	analyzer, closeAnalyzer := buildAnalyzer(ctx, cfg, awsCfg, logger)
	defer closeAnalyzer()

	r := router.New(&router.Config{
		Logger:               logger,
		UsersHandler:         users.NewHandler(userRepo, logger),
		AppointmentsHandler:  appointments.NewHandler(apptService, logger),
		NotificationsHandler: notifications.NewHandler(notifService, logger),
		PaymentsHandler:      payments.NewHandler(paymentService, logger),
		UploadsHandler:       uploads.NewHandler(reportStore, logger),
		SymptomsHandler:      symptoms.NewHandler(analyzer, logger),
		Hub:                  hub,
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthSecret:           cfg.AuthJWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func redisTLS(enabled bool) *tls.Config {
	if !enabled {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// buildAnalyzer selects the symptom analyzer. LLM-backed analyzers are
// always fronted by the rule-based one as a fallback.
func buildAnalyzer(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (symptoms.Analyzer, func()) {
	rules := symptoms.NewRuleBasedAnalyzer()
	noop := func() {}

	switch cfg.SymptomProvider {
	case "bedrock":
		analyzer, err := symptoms.NewBedrockAnalyzer(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			logger.Warn("bedrock analyzer unavailable, using rules", "error", err)
			return rules, noop
		}
		return symptoms.NewWithFallback(analyzer, rules), noop
	case "gemini":
		analyzer, err := symptoms.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini analyzer unavailable, using rules", "error", err)
			return rules, noop
		}
		return symptoms.NewWithFallback(analyzer, rules), func() { _ = analyzer.Close() }
	default:
		return rules, noop
	}
}
