package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ridgelineauto/scheduling-api/internal/api/router"
	"github.com/ridgelineauto/scheduling-api/internal/availability"
	"github.com/ridgelineauto/scheduling-api/internal/booking"
	"github.com/ridgelineauto/scheduling-api/internal/bookinglog"
	appconfig "github.com/ridgelineauto/scheduling-api/internal/config"
	"github.com/ridgelineauto/scheduling-api/internal/http/handlers"
	"github.com/ridgelineauto/scheduling-api/internal/notify"
	"github.com/ridgelineauto/scheduling-api/internal/observability/metrics"
	"github.com/ridgelineauto/scheduling-api/internal/qualification"
	"github.com/ridgelineauto/scheduling-api/internal/schedule"
	"github.com/ridgelineauto/scheduling-api/internal/shopmonkey"
	"github.com/ridgelineauto/scheduling-api/pkg/logging"
)

// labelToDepartment maps Shopmonkey label names to staffing sheet column
// names. Add entries here when the two drift apart.
var labelToDepartment = map[string]string{}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	scheduleCfg, err := schedule.Load(cfg.ConfigPath)
	if err != nil {
		logger.Error("failed to load schedule config", "path", cfg.ConfigPath, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shopClient, err := shopmonkey.New(shopmonkey.Config{
		BaseURL:    cfg.ShopmonkeyBaseURL,
		APIToken:   cfg.ShopmonkeyAPIToken,
		LocationID: cfg.ShopmonkeyLocationID,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to initialize shopmonkey client", "error", err)
		os.Exit(1)
	}

	sheetsSource, err := qualification.NewSheetsSource(ctx, qualification.SheetsConfig{
		SpreadsheetID:   cfg.GoogleSheetsID,
		CredentialsPath: cfg.GoogleCredentialsPath,
	})
	if err != nil {
		logger.Error("failed to initialize sheets client", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
	}

	qualCache := qualification.NewCache(sheetsSource, rdb, cfg.QualificationCacheTTL, logger)

	// Booking log is optional: without a database bookings still succeed,
	// they just are not recorded locally.
	var recorder booking.Recorder
	var lister handlers.BookingLister
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repo := bookinglog.NewRepository(pool)
		recorder = repo
		lister = repo
	}

	notifier := notify.NewService(buildEmailSender(ctx, cfg, logger), cfg.NotificationEmail, logger)

	engine := availability.NewEngine(scheduleCfg)

	bookingService := booking.NewService(booking.Config{
		Shop:      shopClient,
		Engine:    engine,
		Lock:      booking.NewLock(rdb),
		Selector:  booking.NewSelector(rdb),
		Notifier:  notifier,
		Recorder:  recorder,
		UTCOffset: cfg.ShopUTCOffset,
		Logger:    logger,
	})

	appMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	schedulingHandler := handlers.NewSchedulingHandler(handlers.SchedulingHandlerConfig{
		Shop:         shopClient,
		Qualifier:    qualCache,
		Engine:       engine,
		Schedule:     scheduleCfg,
		Booker:       bookingService,
		LabelMapping: labelToDepartment,
		Metrics:      appMetrics,
		Logger:       logger,
	})
	healthHandler := handlers.NewHealthHandler(shopClient, qualCache, qualCache, logger)
	adminHandler := handlers.NewAdminHandler(qualCache, lister, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Scheduling:         schedulingHandler,
		Health:             healthHandler,
		Admin:              adminHandler,
		APIKey:             cfg.APIKey,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		Metrics:            appMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
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

// buildEmailSender picks the configured email backend: SendGrid when an
// API key is set, SES when a from address is configured, otherwise a stub
// that only logs.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if cfg.SendGridAPIKey != "" {
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}
	if cfg.SESFromEmail != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config, falling back to stub email", "error", err)
			return notify.NewStubEmailSender(logger)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}
	return notify.NewStubEmailSender(logger)
}
