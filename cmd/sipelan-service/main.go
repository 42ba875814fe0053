package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"sipelan-service/internal/auth"
	"sipelan-service/internal/config"
	"sipelan-service/internal/db"
	"sipelan-service/internal/events"
	httphandler "sipelan-service/internal/http"
	"sipelan-service/internal/http/middleware"
	"sipelan-service/internal/logger"
	"sipelan-service/internal/mailer"
	"sipelan-service/internal/outbox"
	"sipelan-service/internal/repository"
	"sipelan-service/internal/service"
	"sipelan-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	lifecycleRepo := repository.NewLifecycleRepository(database)
	bidangRepo := repository.NewBidangRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	userRepo := repository.NewUserRepository(database)
	outboxRepo := repository.NewOutboxRepository(database)

	evidence, err := newEvidenceStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Evidence.Storage).Msg("failed to init evidence storage")
	}

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init mailer")
	}

	var publisher events.Publisher
	var kafkaPublisher *events.KafkaPublisher
	if cfg.EventsEnabled() {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Kafka)
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("event publishing enabled")
	}

	templates, err := mailer.NewTemplates(cfg.Notification.TrackingBaseURL, cfg.Location())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse email templates")
	}

	policy, err := service.NewTransitionPolicy(cfg.Lifecycle.TransitionPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid transition policy")
	}

	dispatcher := outbox.NewDispatcher(outboxRepo, notifier, publisher, log, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	})

	lifecycleService := service.NewLifecycleService(lifecycleRepo, evidence, templates, dispatcher, log, service.LifecycleOptions{
		Location:          cfg.Location(),
		Policy:            policy,
		SubmissionReceipt: cfg.Notification.SubmissionReceipt,
		PublishEvents:     cfg.EventsEnabled(),
		OperationTimeout:  cfg.DB.OperationTimeout,
	})
	bidangService := service.NewBidangService(bidangRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	authService := service.NewAuthService(userRepo, bidangRepo, auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL))

	if cfg.Auth.BootstrapEmail != "" {
		created, err := authService.EnsureAdmin(context.Background(), cfg.Auth.BootstrapName, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
		if created {
			log.Info().Str("email", cfg.Auth.BootstrapEmail).Msg("bootstrap admin account created")
		}
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(
		lifecycleService,
		bidangService,
		categoryService,
		authService,
		func(ctx context.Context) error { return db.HealthCheck(ctx, database) },
		log,
	)

	routerCfg := httphandler.RouterConfig{
		Env:            cfg.Environment,
		MaxUploadBytes: cfg.Evidence.MaxBytes,
	}
	var redisClient *redis.Client
	if cfg.RateLimitEnabled() {
		redisClient = openRedis(cfg.Redis, log)
		counter := middleware.NewRedisCounter(redisClient, "sipelan:ratelimit:")
		routerCfg.RateLimit = func(name string) gin.HandlerFunc {
			return middleware.RateLimit(counter, name, cfg.Redis.RatePerMinute, time.Minute, log)
		}
	}
	router := httphandler.NewRouter(handler, middleware.Auth(tokenParser), log, routerCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		dispatcher.Run(ctx)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting sipelan service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	workers.Wait()

	closeResources(log, database, kafkaPublisher, redisClient)
}

func newEvidenceStore(cfg *config.Config) (storage.EvidenceStore, error) {
	switch cfg.Evidence.Storage {
	case config.EvidenceStorageOSS:
		return storage.NewOSSStore(cfg.OSS, cfg.Evidence.MaxBytes)
	default:
		return storage.NewLocalStore(cfg.Evidence.Dir, cfg.Evidence.MaxBytes)
	}
}

func newNotifier(cfg *config.Config, log zerolog.Logger) (mailer.Notifier, error) {
	if !cfg.MailEnabled() {
		log.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return mailer.NewLogMailer(log), nil
	}
	return mailer.NewSMTPMailer(cfg.SMTP)
}

func openRedis(cfg config.RedisConfig, log zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// limiter fails open until redis comes back
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis ping failed")
	}
	return client
}

func closeResources(log zerolog.Logger, database *gorm.DB, publisher *events.KafkaPublisher, redisClient *redis.Client) {
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close kafka writer")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
