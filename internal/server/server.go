package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"arcanum/internal/cache"
	"arcanum/internal/codec"
	"arcanum/internal/config"
	"arcanum/internal/database"
	"arcanum/internal/featureflags"
	"arcanum/internal/middleware"
	"arcanum/internal/models"
	"arcanum/internal/notifications"
	"arcanum/internal/payments"
	"arcanum/internal/repository"
	"arcanum/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	contentRepo repository.ContentRepository
	grantRepo   repository.GrantRepository
	voteRepo    repository.VoteRepository
	replyRepo   repository.ReplyRepository
	sessionRepo repository.SessionRepository

	identityService   *service.IdentityService
	accessService     *service.AccessService
	contentService    *service.ContentService
	engagementService *service.EngagementService
	replyService      *service.ReplyService

	publisher *notifications.Publisher
	hub       *notifications.EngagementHub
	flags     *featureflags.Manager
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	gateway := payments.NewRelayGateway(cfg.RelayURL, 10*time.Second)
	return NewServerWithDeps(cfg, db, redisClient, gateway)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it to inject sqlite, miniredis-backed clients and stub gateways.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, gateway payments.Gateway) (*Server, error) {
	key, err := cfg.ContentKeyBytes()
	if err != nil {
		return nil, err
	}
	contentCodec, err := codec.New(key)
	if err != nil {
		return nil, err
	}

	contentRepo := repository.NewContentRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	prom := middleware.InitMetrics("arcanum-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		contentRepo:    contentRepo,
		grantRepo:      grantRepo,
		voteRepo:       voteRepo,
		replyRepo:      replyRepo,
		sessionRepo:    sessionRepo,
		flags:          featureflags.NewManager(cfg.FeatureFlags),
	}

	confirmWait := time.Duration(cfg.RelayTimeoutMS) * time.Millisecond
	server.identityService = service.NewIdentityService(sessionRepo)
	server.accessService = service.NewAccessService(contentRepo, grantRepo, server.identityService, gateway, confirmWait)
	server.contentService = service.NewContentService(contentRepo, server.accessService, contentCodec)
	server.engagementService = service.NewEngagementService(voteRepo, contentRepo, replyRepo)
	server.replyService = service.NewReplyService(replyRepo, server.accessService, server.identityService, server.engagementService, contentCodec)

	// Realtime engagement stream needs Redis; without it the API still
	// serves every HTTP route.
	server.publisher = notifications.NewPublisher(redisClient)
	if redisClient != nil {
		server.hub = notifications.NewEngagementHub()
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Wallet claims must be attached before context/logging middleware
	// so identity shows up in request logs and spans.
	app.Use(middleware.AuthOptional)

	// Context middleware to propagate request ID and identity
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Session registration
	api.Post("/session", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "session"), s.RegisterSession)

	// Evaluated feature flags for the calling viewer
	api.Get("/flags", s.GetFeatureFlags)

	// Content routes: reads are open (decisions handle gating), ingest and
	// payments require a wallet session.
	content := api.Group("/content")
	content.Get("/", s.ListContent)
	content.Post("/", middleware.RateLimit(
		s.redis, 5, time.Minute, "ingest"), s.IngestContent)
	content.Get("/:id/votes", s.GetContentVotes)
	content.Get("/:id/replies", s.GetReplies)
	content.Get("/:id", s.GetContent)

	protectedContent := api.Group("/content", middleware.AuthRequired)
	protectedContent.Post("/:id/unlock", middleware.RateLimit(
		s.redis, 10, time.Minute, "unlock"), s.UnlockContent)
	protectedContent.Post("/:id/tip", middleware.RateLimit(
		s.redis, 20, time.Minute, "tip"), s.TipContent)
	protectedContent.Post("/:id/vote", middleware.RateLimit(
		s.redis, 30, time.Minute, "vote"), s.VoteContent)
	protectedContent.Post("/:id/replies", middleware.RateLimit(
		s.redis, 10, time.Minute, "reply"), s.CreateReply)

	replies := api.Group("/replies", middleware.AuthRequired)
	replies.Post("/:id/vote", middleware.RateLimit(
		s.redis, 30, time.Minute, "vote"), s.VoteReply)

	// Live engagement stream
	app.Get("/ws/content/:id", middleware.WebSocketAuthOptional, s.WebSocketEngagementHandler())
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The realtime stream is down without Redis but HTTP still serves.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// publishEngagementEvent pushes a live event to the content's room, best effort.
func (s *Server) publishEngagementEvent(ctx context.Context, event notifications.EngagementEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("failed to publish engagement event: %v", err)
	}
}

// Start starts the server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Arcanum API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	middleware.InitMiddleware(s.config)
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.publisher); err != nil {
				log.Printf("failed to start engagement hub wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down engagement hub: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
