package router

import (
	"fmt"
	"time"

	"github.com/anonto42/yatube/internal/cache"
	"github.com/anonto42/yatube/internal/handlers"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/media"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/internal/views"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the routes are wired against.
type Deps struct {
	DB             *gorm.DB
	Sessions       *middleware.Sessions
	SecureCookies  bool
	PageCache      cache.Store
	CacheTTL       time.Duration
	Media          media.Store
	MaxUploadBytes int64
	AuthLimiter    *middleware.RateLimiter
	// Firebase is optional; nil disables /auth/firebase-login.
	Firebase handlers.TokenVerifier
}

// New builds an echo instance with the renderer, middleware and routes in place.
func New(deps Deps) (*echo.Echo, error) {
	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	userRepo := repositories.NewGormUserRepository(deps.DB)
	SetupMiddleware(e, deps, userRepo)
	if err := SetupRoutes(e, deps, userRepo); err != nil {
		return nil, err
	}
	return e, nil
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, deps Deps, users middleware.UserFinder) {
	e.Pre(eMiddleware.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.BodyLimit(fmt.Sprintf("%dB", deps.MaxUploadBytes+1<<20)))
	e.Use(eMiddleware.SecureWithConfig(eMiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	e.Use(middleware.CSRF(deps.SecureCookies))
	e.Use(middleware.LoadUser(deps.Sessions, users))
	logger.Info("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps, userRepo repositories.UserRepository) error {
	sqlDB, err := deps.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck(sqlDB))

	// --- Initialize Repositories ---
	groupRepo := repositories.NewGormGroupRepository(deps.DB)
	postRepo := repositories.NewGormPostRepository(deps.DB)
	commentRepo := repositories.NewGormCommentRepository(deps.DB)
	followRepo := repositories.NewGormFollowRepository(deps.DB)

	// Authentication
	authHandler := handlers.NewAuthHandler(userRepo, deps.Sessions, deps.Firebase)
	authHandler.RegisterAuthRoutes(e.Group("/auth"), deps.AuthLimiter.Middleware())
	logger.Info("auth routes configured", zap.Bool("firebase", deps.Firebase != nil))

	// Staff back office
	adminHandler := handlers.NewAdminHandler(userRepo, groupRepo, postRepo, commentRepo, deps.Media)
	adminHandler.RegisterAdminRoutes(e.Group("/admin"))
	logger.Info("admin routes configured")

	// Uploaded images
	mediaHandler := handlers.NewMediaHandler(deps.Media)
	mediaHandler.RegisterMediaRoutes(e.Group("/media"))

	root := e.Group("")

	// Timelines
	feedHandler := handlers.NewFeedHandler(postRepo, groupRepo, userRepo, followRepo)
	feedHandler.RegisterFeedRoutes(root, middleware.PageCache(deps.PageCache, deps.CacheTTL))
	logger.Info("feed routes configured", zap.Duration("cache_ttl", deps.CacheTTL))

	// Posts
	postHandler := handlers.NewPostHandler(postRepo, groupRepo, commentRepo, deps.Media, deps.MaxUploadBytes)
	postHandler.RegisterPostRoutes(root)

	// Comments
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo)
	commentHandler.RegisterCommentRoutes(root)

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, deps.PageCache)
	followHandler.RegisterFollowRoutes(root)

	logger.Info("all routes configured", zap.Int("routes", len(e.Routes())))
	return nil
}
