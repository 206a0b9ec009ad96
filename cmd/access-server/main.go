// cmd/access-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pwd-access/internal/activitylog"
	"pwd-access/internal/applications"
	"pwd-access/internal/catalog"
	"pwd-access/internal/citizens"
	awsclient "pwd-access/internal/common/aws"
	"pwd-access/internal/common/config"
	"pwd-access/internal/common/database"
	"pwd-access/internal/common/logger"
	"pwd-access/internal/common/observability"
	"pwd-access/internal/documents"
	"pwd-access/internal/httpapi"
	"pwd-access/internal/models"
	"pwd-access/internal/notifications"
	"pwd-access/internal/renewals"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.Build(logger.Settings{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Service:     cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting access server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.Tracing.Enabled, cfg.Tracing.JaegerEndpoint, cfg.Tracing.ServiceName)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}
	defer tracing.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rc *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rc, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rc.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rc.Close()
	zapLog.Info("Redis connected successfully")

	// --- Domain services ---
	auditLog := activitylog.New(activitylog.NewPostgresStore(pg.DB), log)

	notifOpts := []notifications.Option{notifications.WithListLimit(cfg.Notifications.ListLimit)}
	if relay := buildRelay(ctx, cfg, zapLog); relay != nil {
		notifOpts = append(notifOpts, notifications.WithRelay(relay))
	}
	notifSvc := notifications.NewService(notifications.NewPostgresStore(pg.DB), log, notifOpts...)

	serviceCatalog := catalog.New(pg.DB, rc.Client, config.GetDuration(cfg.Cache.ServiceTTL), log)

	appSvc := applications.NewService(
		applications.NewPostgresStore(pg.DB),
		serviceCatalog,
		notifSvc,
		auditLog,
		applications.Settings{
			ReferencePrefix:      cfg.Applications.ReferencePrefix,
			ReferenceMaxAttempts: cfg.Applications.ReferenceMaxAttempts,
			SuperAdminUserID:     cfg.Notifications.SuperAdminUserID,
			DefaultPageSize:      cfg.Applications.DefaultPageSize,
			MaxPageSize:          cfg.Applications.MaxPageSize,
			DueSoonDays:          cfg.Applications.DueSoonDays,
		},
		log,
	)

	citizenSvc := citizens.NewService(citizens.NewPostgresStore(pg.DB), notifSvc, auditLog, log)

	scanner := renewals.NewScanner(
		renewals.NewPostgresStore(pg.DB),
		notifSvc,
		auditLog,
		cfg.Notifications.SuperAdminUserID,
		log,
		renewals.WithDedupeDays(cfg.Renewals.DedupeDays),
	)

	storage, err := documents.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		zapLog.Fatal("upload storage init failed", zap.Error(err))
	}
	docSvc := documents.NewService(storage, documents.NewPostgresStore(pg.DB), auditLog, cfg.Uploads.AllowedTypes, cfg.Uploads.MaxBytes, log)

	// --- Scheduled jobs ---
	scheduler := renewals.NewScheduler(scanner, rc.Client, config.GetDuration(cfg.Renewals.LockTTL), cfg.Renewals.WindowDays, log)
	if cfg.Renewals.Enabled {
		if err := scheduler.Start(cfg.Renewals.Schedule); err != nil {
			zapLog.Fatal("renewal schedule invalid", zap.Error(err), zap.String("schedule", cfg.Renewals.Schedule))
		}
	}
	retention := time.Duration(cfg.Security.FailedLoginRetention) * 24 * time.Hour
	err = scheduler.Every(cfg.Security.PurgeSchedule, "purge-failed-logins", func(ctx context.Context) error {
		_, err := auditLog.PurgeFailedLogins(ctx, retention)
		return err
	})
	if err != nil {
		zapLog.Fatal("purge schedule invalid", zap.Error(err), zap.String("schedule", cfg.Security.PurgeSchedule))
	}
	scheduler.Run()

	// --- HTTP surface ---
	router := httpapi.NewRouter(httpapi.Options{
		Guard:         auditLog,
		MaxFailures:   cfg.Security.MaxFailedLogins,
		WindowSeconds: cfg.Security.FailedLoginWindow,
		Observability: obs,
		Checks: map[string]httpapi.Pinger{
			"postgres": pg,
			"redis":    rc,
		},
		Version: cfg.App.Version,
	}, log,
		applications.NewHandler(appSvc, log),
		citizens.NewHandler(citizenSvc, log),
		notifications.NewHandler(notifSvc, log),
		renewals.NewHandler(scanner, cfg.Renewals.WindowDays, log),
		documents.NewHandler(docSvc, log),
		catalog.NewHandler(serviceCatalog, log),
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)

	zapLog.Info("Access server stopped")
}

// buildRelay returns nil when neither channel is enabled.
func buildRelay(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) notifications.Relay {
	if !cfg.Notifications.RelayEnabled() {
		return nil
	}
	relayCfg := cfg.Notifications.Relay

	var email notifications.EmailSender
	if relayCfg.Email.Enabled {
		ses, err := awsclient.NewSESClient(ctx, relayCfg.AWS.Region, relayCfg.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		email = ses
	}

	var sms notifications.SMSSender
	if relayCfg.SMS.Enabled {
		sns, err := awsclient.NewSNSClient(ctx, relayCfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		sms = sns
	}

	zapLog.Info("Notification relay enabled",
		zap.Bool("email", relayCfg.Email.Enabled),
		zap.Bool("sms", relayCfg.SMS.Enabled),
	)
	return notifications.NewChannelRelay(email, sms, models.NotificationPriority(relayCfg.SMS.PriorityThreshold))
}
