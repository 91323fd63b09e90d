// cmd/payments-server/main.go
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

	"studybuddy-payments/internal/alerts"
	"studybuddy-payments/internal/audit"
	awsclients "studybuddy-payments/internal/common/aws"
	"studybuddy-payments/internal/common/config"
	"studybuddy-payments/internal/common/database"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/observability"
	"studybuddy-payments/internal/common/paystack"
	paystackwebhook "studybuddy-payments/internal/endpoints/paystack-webhook"
	verifypayment "studybuddy-payments/internal/endpoints/verify-payment"
	"studybuddy-payments/internal/ledger"
	"studybuddy-payments/internal/plans"
	"studybuddy-payments/internal/server"
	"studybuddy-payments/internal/subscription"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryWithBackoff retries an operation with exponential backoff
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
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("Failed to load config", zap.Error(err))
	}
	_ = bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting payments server",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	if !cfg.Paystack.Configured() {
		zapLog.Error("PAYSTACK_SECRET_KEY is not set; payment verification and webhooks will fail closed")
	}

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]server.Pinger{}

	// Firebase (Auth + Firestore)
	var fb *database.FirebaseClients
	err = retryWithBackoff(func() error {
		var initErr error
		fb, initErr = database.NewFirebase(ctx, cfg.Firebase)
		return initErr
	}, 5, 2*time.Second, zapLog, "Firebase initialization")
	if err != nil {
		zapLog.Fatal("Failed to initialize Firebase", zap.Error(err))
	}
	defer fb.Close()
	checks["firestore"] = fb
	zapLog.Info("Firebase initialized", zap.String("projectId", cfg.Firebase.ProjectID))

	// Processed-reference ledger
	var refs ledger.Ledger = ledger.NopLedger{}
	if cfg.Database.Redis.Enabled() {
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("Failed to create Redis client", zap.Error(err))
		}
		err = retryWithBackoff(func() error {
			return redisClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = redisClient
		refs = ledger.NewRedisLedger(redisClient.Client, redisClient.ReferenceTTL())
		zapLog.Info("Connected to Redis", zap.String("address", cfg.Database.Redis.Address))
	} else {
		zapLog.Warn("Redis not configured; payment references will not be deduplicated")
	}

	// Audit trail
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Database.Postgres.Enabled {
		pgClient, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("Failed to create PostgreSQL client", zap.Error(err))
		}
		err = retryWithBackoff(func() error {
			return pgClient.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pgClient.Close()
		checks["postgres"] = pgClient

		pgRecorder := audit.NewPostgresRecorder(pgClient.DB)
		if err := pgRecorder.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("Failed to prepare audit table", zap.Error(err))
		}
		recorder = pgRecorder
		zapLog.Info("Connected to PostgreSQL", zap.String("host", cfg.Database.Postgres.Host))
	}

	// Alerts
	var notifiers alerts.MultiNotifier
	if cfg.Alerts.SNS.Enabled || cfg.Alerts.SES.Enabled {
		awsCfg, err := awsclients.LoadConfig(ctx, cfg.Alerts.AWS.Region)
		if err != nil {
			zapLog.Fatal("Failed to load AWS config", zap.Error(err))
		}
		if cfg.Alerts.SNS.Enabled {
			notifiers = append(notifiers, alerts.NewSNSNotifier(awsclients.NewSNSClient(awsCfg), cfg.Alerts.SNS.TopicARN))
		}
		if cfg.Alerts.SES.Enabled {
			notifiers = append(notifiers, alerts.NewSESNotifier(awsclients.NewSESClient(awsCfg), cfg.Alerts.SES.FromEmail))
		}
		zapLog.Info("Alerts enabled",
			zap.Bool("sns", cfg.Alerts.SNS.Enabled),
			zap.Bool("ses", cfg.Alerts.SES.Enabled),
		)
	}
	var notifier alerts.Notifier = alerts.NopNotifier{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	registry, err := plans.FromConfig(cfg.Plans)
	if err != nil {
		zapLog.Fatal("Invalid plan catalog", zap.Error(err))
	}

	store := subscription.NewFirestoreStore(fb.Firestore, cfg.Firebase.UsersCollection)
	upgrader := subscription.NewUpgrader(store, refs, notifier, log)
	gateway := paystack.NewClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, config.GetDuration(cfg.Paystack.Timeout))

	verifyCfg := verifypayment.LoadConfig(cfg)
	if err := verifyCfg.Validate(); err != nil {
		zapLog.Fatal("Invalid verify-payment config", zap.Error(err))
	}
	webhookCfg := paystackwebhook.LoadConfig(cfg)
	if err := webhookCfg.Validate(); err != nil {
		zapLog.Fatal("Invalid webhook config", zap.Error(err))
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Options{
		Verify:        verifypayment.NewHandler(verifyCfg, registry, gateway, upgrader, recorder, log),
		Webhook:       paystackwebhook.NewHandler(webhookCfg, registry, store, upgrader, recorder, log),
		TokenVerifier: fb.Auth,
		Checks:        checks,
		Observability: obs,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownTimeout := config.GetDuration(cfg.Server.ShutdownTimeout)
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Graceful shutdown failed", zap.Error(err))
	}
	cancel()
	zapLog.Info("Payments server stopped")
}
