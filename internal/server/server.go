// Package server contains the HTML site, JSON API and websocket handlers.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "yatube/docs" // swagger docs
	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/notifications"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/internal/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/gofiber/template/html/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	views          *html.Engine
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	groupRepo      repository.GroupRepository
	followRepo     repository.FollowRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	hubs           []wireableHub
	featureFlags   *featureflags.Manager
	pageCache      *cache.PageCache
	images         *service.ImageService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	listing        *service.ListingService
	authService    *service.AuthService
}

// NewServer bootstraps the database, schema and Redis from cfg and builds a server on them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedBuiltIns: cfg.SeedBuiltInGroups})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: page caching and feed delivery then stay in process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	views, err := web.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		views:          views,
		promMiddleware: middleware.InitMetrics("yatube"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		pageCache:      cache.NewPageCache(redisClient, cfg.IndexCacheTTL()),
		images:         service.NewImageService(cfg),
		hub:            notifications.NewHub(),
	}
	s.notifier = notifications.NewNotifier(redisClient, s.hub)
	s.hubs = []wireableHub{s.hub}

	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.followRepo, s.images, s.notifier, s.featureFlags)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.listing = service.NewListingService(s.postRepo, s.groupRepo, s.userRepo, s.followRepo, s.commentRepo)
	s.authService = service.NewAuthService(s.userRepo, redisClient, cfg.JWTSecret)

	return s, nil
}

// PageCache exposes the whole-page cache so tools can clear it.
func (s *Server) PageCache() *cache.PageCache { return s.pageCache }

// NewApp builds the Fiber application with views, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		Views:        s.views,
		ViewsLayout:  web.Layout,
		ErrorHandler: s.ErrorHandler,
		BodyLimit:    int(s.images.MaxUploadBytes()) + 1024*1024,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery; the error handler renders the 500 page.
	app.Use(recover.New(recover.Config{EnableStackTrace: !s.config.IsProduction()}))

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Post images and the stylesheet are same-origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test" || c.Method() == fiber.MethodOptions ||
				strings.HasPrefix(c.Path(), "/static/") || strings.HasPrefix(c.Path(), "/media/")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return s.tooManyRequests(c)
		},
	}))

	app.Use(s.SessionMiddleware())

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:" + csrfFormField,
			CookieName:     "csrftoken",
			CookieSameSite: "Lax",
			CookieSecure:   s.config.IsProduction(),
			CookieHTTPOnly: true,
			Expiration:     12 * time.Hour,
			ContextKey:     csrfContextKey,
			Next: func(c *fiber.Ctx) bool {
				return isAPIRequest(c)
			},
			ErrorHandler: s.csrfFailure,
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   web.Static(),
		MaxAge: 3600,
	}))
	app.Static("/media", s.images.MediaRoot(), fiber.Static{MaxAge: 86400})

	s.setupAPIRoutes(app)

	app.Get("/ws/feed", s.FeedUpgrade(), s.FeedWebsocket())

	// Site
	app.Get("/", s.Index)
	app.Get("/groups/", s.GroupList)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/follow/", s.LoginRequired(), s.FollowIndex)
	app.Get("/create/", s.CreatePostForm)
	app.Post("/create/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post", s.tooManyRequests), s.CreatePost)

	profiles := app.Group("/profile/:username")
	profiles.Get("/", s.Profile)
	profiles.Get("/follow/", s.LoginRequired(), s.ProfileFollow)
	profiles.Get("/unfollow/", s.LoginRequired(), s.ProfileUnfollow)

	posts := app.Group("/posts/:id")
	posts.Get("/", s.PostDetail)
	posts.Get("/edit/", s.EditPostForm)
	posts.Post("/edit/", s.EditPost)
	posts.Get("/comment/", s.CommentRedirect)
	posts.Post("/comment/", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment", s.tooManyRequests), s.AddComment)

	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupForm)
	auth.Post("/signup/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup", s.tooManyRequests), s.Signup)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login", s.tooManyRequests), s.Login)
	auth.Get("/logout/", s.Logout)

	about := app.Group("/about")
	about.Get("/author/", s.staticPage("about/author", "Об авторе проекта"))
	about.Get("/tech/", s.staticPage("about/tech", "Технологии"))
}

func (s *Server) setupAPIRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Yatube Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup", nil), s.APISignup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login", nil), s.APILogin)
	auth.Post("/logout", s.AuthRequired(), s.APILogout)

	// Public reads
	api.Get("/posts", s.APIListPosts)
	api.Get("/posts/:id/comments", s.APIListComments)
	api.Get("/posts/:id", s.APIGetPost)
	api.Get("/groups", s.APIListGroups)
	api.Get("/groups/:slug/posts", s.APIGroupPosts)
	api.Get("/profiles/:username", s.APIGetProfile)

	// Protected routes
	protected := api.Group("", s.AuthRequired())
	protected.Post("/posts", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post", nil), s.APICreatePost)
	protected.Put("/posts/:id", s.APIUpdatePost)
	protected.Post("/posts/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment", nil), s.APICreateComment)
	protected.Get("/follow", s.APIFeed)
	protected.Post("/profiles/:username/follow", s.APIFollow)
	protected.Delete("/profiles/:username/follow", s.APIUnfollow)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The site degrades to in-process caching without Redis.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
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

// Start builds the app, wires the feed hub to Redis and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	// Wire all hubs to Redis subscriber if available
	if s.redis != nil {
		for _, h := range s.hubs {
			h := h
			go func() {
				if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
					middleware.Logger.Error("failed to start hub wiring", "hub", h.Name(), "error", err)
				}
			}()
		}
	}

	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop all wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	// Close WebSocket connections gracefully
	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", h.Name(), "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
