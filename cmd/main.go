package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/mansoorceksport/liftlog/internal/server"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func newLogger(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := newLogger(cfg.Log)

	log.Info("Starting Liftlog workout service...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders:    telemetry.BasicAuthHeaders(cfg.OTEL.InstanceID, cfg.OTEL.Token),
		Enabled:        cfg.OTEL.Enabled,
	}, log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize OpenTelemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("OpenTelemetry shutdown failed")
		}
	}()

	// Firebase replaces JWT verification when configured
	var verifier middleware.TokenVerifier
	if cfg.FirebaseEnabled() {
		firebaseApp, err := middleware.InitFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.PrivateKey, cfg.Firebase.ClientEmail)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to get Firebase Auth client: %v", err)
		}
		verifier = authClient
		log.Info("✓ Firebase initialized")
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Info("✓ Redis connected")

	backend := repository.NewBackendClient(cfg.Backend.URL, cfg.Backend.Timeout)

	// Outbox for backend writes that failed, stored in MongoDB
	var outbox *service.OutboxService
	if cfg.Outbox.Enabled && cfg.MongoDB.URI != "" {
		ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
		if cfg.OTEL.Enabled {
			mongoOpts.SetMonitor(otelmongo.NewMonitor())
		}
		mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.WithError(err).Error("Error disconnecting from MongoDB")
			}
		}()
		if err := mongoClient.Ping(ctxMongo, nil); err != nil {
			log.Fatalf("Failed to ping MongoDB: %v", err)
		}
		log.Info("✓ MongoDB connected")

		outboxRepo := repository.NewMongoOutboxRepository(mongoClient.Database(cfg.MongoDB.Database))
		if err := outboxRepo.EnsureIndexes(ctxMongo); err != nil {
			log.Fatalf("Failed to create outbox indexes: %v", err)
		}
		outbox = service.NewOutboxService(outboxRepo, backend, cfg.Outbox.MaxAttempts, log)
		go outbox.Run(ctx, cfg.Outbox.Interval)
	}

	// Session archives in S3-compatible storage
	var archive domain.FileRepository
	if cfg.S3.Endpoint != "" {
		s3Repo, err := repository.NewS3ArchiveRepository(ctx, cfg.S3)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize S3 archive, completed sessions will not be archived")
		} else {
			archive = s3Repo
			log.Info("✓ S3 archive ready")
		}
	}

	app := server.NewApp(server.AppDependencies{
		Config:        cfg,
		Logger:        log,
		RedisClient:   redisClient,
		Backend:       backend,
		Days:          backend,
		Outbox:        outbox,
		Archive:       archive,
		TokenVerifier: verifier,
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.Infof("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Pending set logs and snapshots are flushed before exit
	app.Registry.Close()
}
