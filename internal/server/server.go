package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/fittrack/internal/config"
	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/mansoorceksport/fittrack/internal/handler"
	"github.com/mansoorceksport/fittrack/internal/middleware"
	"github.com/mansoorceksport/fittrack/internal/repository"
	"github.com/mansoorceksport/fittrack/internal/service"
	"github.com/mansoorceksport/fittrack/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	authRateLimit       = 20
	authRateLimitWindow = time.Minute
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	// AuthClient enables POST /v1/auth/firebase when set
	AuthClient service.FirebaseAuthClient
	// FileRepo stores profile pictures; uploads answer 503 when nil
	FileRepo domain.FileRepository
	Logger   *zap.Logger
}

// Services is the wired service layer, shared by the HTTP app and the admin CLI.
type Services struct {
	Auth         *service.AuthService
	Tokens       *service.TokenService
	Workouts     *service.WorkoutService
	Orchestrator *service.CompletionOrchestrator
	Progress     *service.ProgressService
	Challenges   *service.ChallengeService
	Community    *service.CommunityService
	Profile      *service.ProfileService
	Achievements domain.AchievementRepository
}

// NewServices builds repositories and services on top of Mongo and Redis
func NewServices(deps AppDependencies) *Services {
	cfg := deps.Config
	log := deps.Logger

	// Initialize repositories
	cache := repository.NewRedisCacheRepository(deps.RedisClient)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	refreshTokenRepo := repository.NewMongoRefreshTokenRepository(deps.MongoDB)
	sessionRepo := repository.NewMongoWorkoutSessionRepository(deps.MongoDB)
	completionRepo := repository.NewMongoCompletionRepository(deps.MongoDB)
	recordRepo := repository.NewCachedPersonalRecordRepository(repository.NewMongoPersonalRecordRepository(deps.MongoDB), cache)
	statsRepo := repository.NewCachedProgressStatsRepository(repository.NewMongoProgressStatsRepository(deps.MongoDB), cache)
	achievementRepo := repository.NewMongoAchievementRepository(deps.MongoDB)
	feedRepo := repository.NewMongoFeedRepository(deps.MongoDB)
	followRepo := repository.NewMongoFollowRepository(deps.MongoDB)
	challengeRepo := repository.NewMongoChallengeRepository(deps.MongoDB)
	notificationRepo := repository.NewMongoNotificationRepository(deps.MongoDB)
	leaderboardRepo := repository.NewCachedLeaderboardRepository(repository.NewMongoLeaderboardRepository(deps.MongoDB), cache)
	locker := repository.NewRedisUserLocker(deps.RedisClient, cfg.Lock.TTL, cfg.Lock.Wait)

	domainMetrics, err := telemetry.NewDomainMetrics()
	if err != nil {
		log.Warn("domain metrics disabled", zap.Error(err))
	}

	// Initialize services
	tokenService := service.NewTokenService(cfg.JWT, refreshTokenRepo, userRepo)
	authService := service.NewAuthService(userRepo, tokenService, deps.AuthClient, log)
	records := service.NewRecordTracker(recordRepo, log)
	stats := service.NewStatsAggregator(completionRepo, statsRepo, cfg.Stats.Location(), log)
	evaluator := service.NewAchievementEvaluator(achievementRepo, statsRepo, feedRepo, domainMetrics, log)
	orchestrator := service.NewCompletionOrchestrator(
		sessionRepo,
		completionRepo,
		records,
		stats,
		evaluator,
		feedRepo,
		cache,
		locker,
		domainMetrics,
		log,
	)

	return &Services{
		Auth:         authService,
		Tokens:       tokenService,
		Workouts:     service.NewWorkoutService(sessionRepo, completionRepo, userRepo, log),
		Orchestrator: orchestrator,
		Progress:     service.NewProgressService(completionRepo, records, stats, evaluator, cache, log),
		Challenges: service.NewChallengeService(
			challengeRepo, sessionRepo, userRepo, notificationRepo, orchestrator, log,
		),
		Community: service.NewCommunityService(
			userRepo, followRepo, feedRepo, leaderboardRepo, notificationRepo,
			achievementRepo, completionRepo, stats, log,
		),
		Profile:      service.NewProfileService(userRepo, deps.FileRepo, log),
		Achievements: achievementRepo,
	}
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg := deps.Config
	log := deps.Logger.Named("http")

	svc := NewServices(deps)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if n, err := service.SeedCatalog(ctx, svc.Achievements); err != nil {
		log.Warn("achievement catalog not seeded", zap.Error(err))
	} else {
		log.Debug("achievement catalog seeded", zap.Int("achievements", n))
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(svc.Auth, cfg.JWT.RefreshTokenExpiry, cfg.Server.SecureCookies, log)
	workoutHandler := handler.NewWorkoutHandler(svc.Workouts, svc.Orchestrator, log)
	progressHandler := handler.NewProgressHandler(svc.Progress, log)
	communityHandler := handler.NewCommunityHandler(svc.Community, svc.Challenges, log)
	profileHandler := handler.NewProfileHandler(svc.Profile, svc.Community, log)

	httpMetrics := middleware.NewHTTPMetrics("fittrack")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "FitTrack API",
		BodyLimit:    int(cfg.Server.BodyLimitMB * 1024 * 1024),
		ErrorHandler: handler.NewErrorHandler(log),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowCredentials: cfg.Server.CORSOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Correlation-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders:    "X-Trace-ID, X-Idempotent-Replay",
	}))
	app.Use(telemetry.FiberMiddleware(telemetry.TraceOptions{
		SkipPaths:    []string{"/health", "/metrics"},
		UserLocal:    middleware.UserIDKey,
		ReplayHeader: middleware.HeaderReplay,
	}))
	app.Use(httpMetrics.Handler())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "fittrack",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(httpMetrics.Registry, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := app.Group("/v1")

	// Auth endpoints (public, rate limited per IP)
	auth := v1.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:        authRateLimit,
		Expiration: authRateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts, try again later",
			})
		},
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	if deps.AuthClient != nil {
		auth.Post("/firebase", authHandler.LoginWithFirebase)
	}
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	requireAuth := middleware.RequireAuth(cfg.JWT.Secret)
	idempotency := middleware.Idempotency(deps.RedisClient, cfg.Idempotency.TTL, deps.Logger)

	// ===========================================
	// MEMBER API - /v1/me/*
	// ===========================================
	me := v1.Group("/me", requireAuth, idempotency)

	me.Get("/profile", profileHandler.GetProfile)
	me.Put("/profile", profileHandler.UpdateProfile)
	me.Post("/profile/picture", profileHandler.UploadPicture)

	me.Post("/workouts", workoutHandler.CreateSession)
	me.Get("/workouts", workoutHandler.ListSessions)
	me.Get("/workouts/:id", workoutHandler.GetSession)
	me.Delete("/workouts/:id", workoutHandler.DeleteSession)
	me.Post("/workouts/:id/complete", workoutHandler.CompleteSession)
	me.Get("/completions", workoutHandler.ListCompletions)

	me.Get("/stats", progressHandler.GetStats)
	me.Post("/stats/recompute", progressHandler.Recompute)
	me.Get("/records", progressHandler.GetRecords)
	me.Get("/achievements", progressHandler.GetAchievements)

	me.Get("/notifications", profileHandler.ListNotifications)
	me.Post("/notifications/read", profileHandler.MarkNotificationsRead)

	// ===========================================
	// COMMUNITY API - /v1/community/*
	// ===========================================
	community := v1.Group("/community", requireAuth, idempotency)

	community.Get("/users/search", communityHandler.SearchUsers)
	community.Get("/users/:id/profile", communityHandler.GetProfile)
	community.Post("/users/:id/follow", communityHandler.ToggleFollow)
	community.Get("/following", communityHandler.ListFollowing)
	community.Get("/feed", communityHandler.Feed)
	community.Get("/leaderboard/:criteria", communityHandler.Leaderboard)
	community.Get("/workouts/:id", workoutHandler.GetPublicSession)

	challenges := community.Group("/challenges")
	challenges.Post("/", communityHandler.SendChallenge)
	challenges.Get("/received", communityHandler.ListReceivedChallenges)
	challenges.Get("/sent", communityHandler.ListSentChallenges)
	challenges.Post("/:id/complete", communityHandler.CompleteChallenge)
	challenges.Post("/:id/:action", communityHandler.RespondChallenge)
	challenges.Delete("/:id", communityHandler.CancelChallenge)

	return app
}
