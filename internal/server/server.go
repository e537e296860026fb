// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "writeflow/docs" // swagger docs
	"writeflow/internal/cache"
	"writeflow/internal/config"
	"writeflow/internal/database"
	"writeflow/internal/featureflags"
	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/repository"
	"writeflow/internal/service"
	"writeflow/internal/storage"
	"writeflow/internal/token"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized backends a Server runs on.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	// Blogs defaults to a gorm store on DB.
	Blogs repository.BlogRepository
	// Images defaults to the store selected by IMAGE_STORAGE.
	Images storage.ObjectStore
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *token.Service
	revocations    *cache.TokenRevocations
	featureFlags   *featureflags.Manager
	userRepo       repository.UserRepository
	blogRepo       repository.BlogRepository
	images         storage.ObjectStore
	closers        []func() error

	authService    *service.AuthService
	blogService    *service.BlogService
	commentService *service.CommentService
	imageService   *service.ImageService
	writingService *service.WritingService
}

// NewServer connects to the configured backends and builds a Server on them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	deps := Deps{DB: db, Redis: redisClient}
	var closers []func() error
	if cfg.StoreDriver == config.StoreBadger {
		badgerRepo, err := repository.OpenBadgerBlogRepository(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("blog store: %w", err)
		}
		deps.Blogs = badgerRepo
		closers = append(closers, badgerRepo.Close)
	}

	srv, err := NewServerWithDeps(ctx, cfg, deps)
	if err != nil {
		for _, closeFn := range closers {
			_ = closeFn()
		}
		return nil, err
	}
	srv.closers = append(srv.closers, closers...)
	return srv, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	tokens, err := token.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		return nil, err
	}

	images := deps.Images
	if images == nil {
		images, err = storage.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("image storage: %w", err)
		}
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	blogs := deps.Blogs
	if blogs == nil {
		if deps.DB == nil {
			return nil, errors.New("a database or blog store is required")
		}
		blogs = repository.NewGormBlogRepository(deps.DB)
	}
	if flags.Enabled(featureflags.BlogCache, 0) {
		blogs = repository.NewCachedBlogRepository(blogs, deps.Redis)
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("writeflow-api"),
		tokens:         tokens,
		revocations:    cache.NewTokenRevocations(deps.Redis),
		featureFlags:   flags,
		blogRepo:       blogs,
		images:         images,
	}
	if deps.DB != nil {
		s.userRepo = repository.NewUserRepository(deps.DB)
	}

	s.authService = service.NewAuthService(s.userRepo, s.tokens, s.revocations)
	s.blogService = service.NewBlogService(s.blogRepo)
	s.commentService = service.NewCommentService(s.blogRepo, s.featureFlags)
	s.imageService = service.NewImageService(s.images, cfg)
	s.writingService = service.NewWritingService(cfg)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing sets the trace id that ContextMiddleware copies into the context.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	maxPerMinute := s.config.RateLimitPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 100
	}
	app.Use(limiter.New(limiter.Config{
		Max:        maxPerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
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

// SetupRoutes mounts every route at the root and again under /api.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// A local store with a path-style base URL is served by this process.
	if local, ok := s.images.(*storage.LocalStore); ok && strings.HasPrefix(s.config.ImagePublicBaseURL, "/") {
		app.Static(s.config.ImagePublicBaseURL, local.Dir(), fiber.Static{MaxAge: 31536000})
	}

	s.mountAPI(app.Group("/api"))
	s.mountAPI(app.Group(""))
}

func (s *Server) mountAPI(r fiber.Router) {
	authRequired := s.AuthRequired()

	auth := r.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", authRequired, s.Logout)

	r.Get("/users/me", authRequired, s.GetMe)

	blogs := r.Group("/blogs")
	blogs.Get("/", s.GetBlogs)
	// /mine must be registered before /:id
	blogs.Get("/mine", authRequired, s.GetMyBlogs)
	blogs.Post("/", authRequired, s.CreateBlog)
	blogs.Get("/:id/comments", s.GetComments)
	blogs.Post("/:id/comments", authRequired,
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	blogs.Post("/:id/comments/:commentId/replies", authRequired,
		middleware.RateLimit(s.redis, 20, time.Minute, "create_reply"), s.CreateReply)
	blogs.Put("/:id/comments/:commentId", authRequired, s.UpdateComment)
	blogs.Delete("/:id/comments/:commentId", authRequired, s.DeleteComment)
	blogs.Get("/:id", s.GetBlog)
	blogs.Put("/:id", authRequired, s.UpdateBlog)
	blogs.Delete("/:id", authRequired, s.DeleteBlog)

	r.Post("/images", authRequired, s.UploadImage)

	ai := r.Group("/ai", authRequired,
		middleware.RateLimitWithPolicy(s.redis, 30, time.Minute, middleware.FailOpen, "ai"))
	ai.Post("/correct", s.CorrectText)
	ai.Post("/spellcheck", s.Spellcheck)
	ai.Post("/generate", s.GenerateText)
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.tokens, s.revocations)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so its
// absence is reported without failing the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
		healthy = false
	} else if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "unhealthy"
		healthy = false
	}
	checks["database"] = dbStatus

	if pinger, ok := s.blogRepo.(interface{ Ping() error }); ok {
		if err := pinger.Ping(); err != nil {
			checks["blog_store"] = "unhealthy"
			healthy = false
		} else {
			checks["blog_store"] = "healthy"
		}
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}
	checks["redis"] = redisStatus

	if s.images != nil {
		if err := s.images.Ping(ctx); err != nil {
			checks["images"] = "unhealthy"
			healthy = false
		} else {
			checks["images"] = "healthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if !healthy {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}

// Shutdown releases the blog store and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "shutdown errors", slog.String("error", err.Error()))
	}
	return err
}

// respondServiceError writes err with the status its AppError code maps to.
func respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
		err = appErr
	}
	status := models.StatusFor(appErr.Code)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("code", appErr.Code),
			slog.Any("error", err),
		)
	}
	return models.RespondWithError(c, status, err)
}
