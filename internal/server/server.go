package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/mansoorceksport/liftlog/internal/handler"
	"github.com/mansoorceksport/liftlog/internal/middleware"
	"github.com/mansoorceksport/liftlog/internal/repository"
	"github.com/mansoorceksport/liftlog/internal/service"
	"github.com/mansoorceksport/liftlog/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application.
// Days, Outbox, Archive, TokenVerifier and Ticker are optional.
type AppDependencies struct {
	Config        *config.Config
	Logger        logrus.FieldLogger
	RedisClient   *redis.Client
	Backend       domain.BackendAPI
	Days          handler.DayLister
	Outbox        *service.OutboxService
	Archive       domain.FileRepository
	TokenVerifier middleware.TokenVerifier
	Ticker        service.TickerFunc
}

// App is the HTTP application plus the workouts it keeps in memory
type App struct {
	*fiber.App
	Registry *service.Registry
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *App {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	// Initialize repositories
	cacheRepo := repository.NewRedisCacheRepository(deps.RedisClient)
	snapshotRepo := repository.NewRedisSnapshotRepository(cacheRepo)
	todayRepo := repository.NewRedisTodayRepository(cacheRepo)
	backend := repository.NewCachedBackend(deps.Backend, cacheRepo)

	// Initialize services
	opts := service.RegistryOptions{
		Logger:    deps.Logger,
		Snapshots: snapshotRepo,
		Archive:   deps.Archive,
		Stats:     backend,
		Ticker:    deps.Ticker,
	}
	if deps.Outbox != nil {
		opts.Outbox = deps.Outbox
	}
	registry := service.NewRegistry(backend, opts)
	todayService := service.NewTodayService(todayRepo, backend)

	// Initialize handlers
	workoutHandler := handler.NewWorkoutHandler(registry)
	todayHandler := handler.NewTodayHandler(todayService)
	statsHandler := handler.NewStatsHandler(backend, deps.Days, deps.Outbox)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Liftlog Workout API",
		BodyLimit:    deps.Config.Server.BodyLimitKB * 1024,
		ErrorHandler: customErrorHandler(deps.Logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(telemetry.FiberMiddleware())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "liftlog",
		})
	})

	auth := middleware.VerifyToken(deps.Config.JWT.Secret)
	if deps.TokenVerifier != nil {
		auth = middleware.FirebaseAuth(deps.TokenVerifier)
	}

	// API v1 routes
	v1 := app.Group("/v1", auth, middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL, deps.Logger))

	v1.Get("/days", statsHandler.ListDays)
	v1.Post("/days/:day_id/sessions", workoutHandler.StartSession)

	sessions := v1.Group("/sessions")
	sessions.Post("/:id/open", workoutHandler.OpenSession)
	sessions.Get("/:id", workoutHandler.GetSession)
	sessions.Post("/:id/next", workoutHandler.Next)
	sessions.Post("/:id/skip", workoutHandler.Skip)
	sessions.Post("/:id/previous", workoutHandler.Previous)
	sessions.Post("/:id/clock/toggle", workoutHandler.ToggleClock)
	sessions.Put("/:id/weight", workoutHandler.SetWeight)
	sessions.Delete("/:id", workoutHandler.ExitSession)

	today := v1.Group("/today")
	today.Get("/", todayHandler.GetToday)
	today.Put("/", todayHandler.SetToday)
	today.Delete("/", todayHandler.ClearToday)
	today.Post("/exercises/:exercise_id/toggle", todayHandler.ToggleExercise)

	v1.Get("/stats", statsHandler.GetStats)
	v1.Post("/outbox/replay", middleware.RequireUser(deps.Config.Outbox.Operators), statsHandler.ReplayOutbox)

	return &App{App: app, Registry: registry}
}

func customErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		log.WithFields(logrus.Fields{"path": c.Path(), "status": code}).WithError(err).Error("request failed")
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
