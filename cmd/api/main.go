package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kgbox/expiry-notifier/internal/application/fanout"
	"github.com/kgbox/expiry-notifier/internal/application/job"
	"github.com/kgbox/expiry-notifier/internal/application/notify"
	"github.com/kgbox/expiry-notifier/internal/application/scan"
	"github.com/kgbox/expiry-notifier/internal/config"
	"github.com/kgbox/expiry-notifier/internal/infrastructure/dynamo"
	jwtinfra "github.com/kgbox/expiry-notifier/internal/infrastructure/jwt"
	s3infra "github.com/kgbox/expiry-notifier/internal/infrastructure/s3"
	"github.com/kgbox/expiry-notifier/internal/infrastructure/sns"
	"github.com/kgbox/expiry-notifier/internal/pkg/logger"
	"github.com/kgbox/expiry-notifier/internal/scheduler"
	transporthttp "github.com/kgbox/expiry-notifier/internal/transport/http"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync() //nolint:errcheck

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables, log)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Warn("jwt provider not available, authenticated routes will reject all requests", zap.Error(err))
	}

	// SNS push transport.
	pusher, err := sns.NewPusher(cfg)
	if err != nil {
		log.Fatal("sns pusher init failed", zap.Error(err))
	}

	// S3 run-report archive.
	s3Client := s3infra.NewClient(cfg)
	reports := s3infra.NewStore(s3Client, cfg.S3ReportBucket)

	productRepo := dynamo.NewProductRepo(dynamoClient, cfg.DynamoTables.Products)
	tokenRepo := dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.DeviceTokens, log)
	notifRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)

	scanSvc := scan.NewService(productRepo, time.Duration(cfg.HorizonDays)*24*time.Hour)
	dispatcher := fanout.NewDispatcher(tokenRepo, pusher, log)
	sender := notify.NewSender(pusher)
	scanJob := job.New(scanSvc, dispatcher, notifRepo, tokenRepo, reports, log, cfg.FanoutConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner, err := scheduler.Start(ctx, cfg, scanJob, log)
	if err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}

	deps := &transporthttp.Deps{
		ScanService:      scanSvc,
		Sender:           sender,
		Job:              scanJob,
		TokenRepo:        tokenRepo,
		NotificationRepo: notifRepo,
		JWTProvider:      jwtProvider,
	}
	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("shutting down")
	cronCtx := cronRunner.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		os.Exit(1)
	}
	// Let an in-flight scheduled run finish before exiting.
	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn("scheduled run did not finish before shutdown deadline")
	}
	log.Info("server stopped")
}
