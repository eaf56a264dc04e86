package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oboreham/portfolio-backend/internal/api"
	"github.com/oboreham/portfolio-backend/internal/backend"
	"github.com/oboreham/portfolio-backend/internal/identity"
	"github.com/oboreham/portfolio-backend/internal/service"
	"github.com/oboreham/portfolio-backend/pkg/config"
	"github.com/oboreham/portfolio-backend/pkg/logging"
	"github.com/oboreham/portfolio-backend/pkg/middleware"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Portfolio Backend Server",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("mode", cfg.Mode),
	)

	// Initialize storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	// Ping storage to verify connection
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping storage", zap.Error(err))
	}

	// Initialize services and background workers
	services := service.NewServices(store, cfg, logger)
	services.Start()
	defer services.Stop()

	router := setupRouter(cfg, services, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("address", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func setupRouter(cfg *config.Config, services *service.Services, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // TODO: Make configurable
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.SessionHeader, "X-Forwarded-Host", "X-Forwarded-Proto"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	provider := identity.NewProvider(&cfg.Identity, logger)
	handlers := api.NewHandlers(services, cfg, provider, logger)
	rateLimiter := middleware.NewCeremonyRateLimiter(cfg.RateLimit, logger)

	// Root-level health/status endpoints
	router.GET("/status", handlers.Status)
	router.GET("/health", handlers.Status)

	// =========================================================================
	// PUBLIC ROUTES (unauthenticated)
	// =========================================================================
	router.GET("/blog-posts", handlers.BlogPosts)

	// Admin status resolves identity itself so non-admins get the
	// allowed=false body instead of the middleware error.
	router.GET("/admin-status", handlers.AdminStatus)

	// =========================================================================
	// ADMIN ROUTES (identity check + allowlist gate)
	// =========================================================================
	admin := router.Group("/")
	admin.Use(middleware.AdminAuth(cfg, provider, logger))
	{
		// WebAuthn ceremony routes
		ceremonies := admin.Group("/")
		ceremonies.Use(middleware.RateLimitCeremonies(rateLimiter))
		{
			ceremonies.GET("/webauthn-register-options", handlers.RegisterOptions)
			ceremonies.POST("/webauthn-register-verify", handlers.RegisterVerify)
			ceremonies.GET("/webauthn-auth-options", handlers.AuthOptions)
			ceremonies.POST("/webauthn-auth-verify", handlers.AuthVerify)
		}

		// Privileged routes additionally require an elevated session
		privileged := admin.Group("/")
		privileged.Use(middleware.RequireStepUp(services.Session))
		{
			privileged.POST("/webauthn-reset", handlers.Reset)
			privileged.POST("/blog-update", handlers.BlogUpdate)
			privileged.POST("/blog-delete", handlers.BlogDelete)
		}
	}

	return router
}
