// Package main runs the ticketing HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dicoevent/backend/config"
	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/auth"
	"github.com/dicoevent/backend/internal/cache"
	"github.com/dicoevent/backend/internal/emaillogs"
	"github.com/dicoevent/backend/internal/events"
	"github.com/dicoevent/backend/internal/media"
	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/internal/payments"
	"github.com/dicoevent/backend/internal/registrations"
	"github.com/dicoevent/backend/internal/tickets"
	"github.com/dicoevent/backend/pkg/database"
	"github.com/dicoevent/backend/pkg/redis"
	"github.com/dicoevent/backend/pkg/response"
	"github.com/dicoevent/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	// Money goes over the wire as JSON numbers; storage stays exact.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Endpoint:             cfg.Storage.Endpoint,
		UseSSL:               cfg.Storage.UseSSL,
		Region:               cfg.Storage.Region,
		AccessKeyID:          cfg.Storage.AccessKeyID,
		SecretAccessKey:      cfg.Storage.SecretAccessKey,
		Bucket:               cfg.Storage.Bucket,
		PresignExpireMinutes: cfg.Storage.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("object storage", zap.Error(err))
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		logger.Fatal("ensure bucket", zap.Error(err), zap.String("bucket", s3Client.Bucket()))
	}

	layer := cache.NewLayer(cache.NewRedisStore(rdb.Client), cfg.Cache.TTL, logger)
	eval := access.NewEvaluator()

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if email := cfg.Auth.BootstrapSuperuserEmail; email != "" {
		ok, err := authRepo.PromoteSuperuser(ctx, email)
		switch {
		case err != nil:
			logger.Error("bootstrap superuser", zap.Error(err))
		case !ok:
			logger.Warn("bootstrap superuser not registered yet", zap.String("email", email))
		default:
			logger.Info("bootstrap superuser promoted", zap.String("email", email))
		}
	}

	// Resources
	eventHandler := events.NewHandler(events.NewService(events.NewRepository(pool), layer, eval, logger))
	ticketHandler := tickets.NewHandler(tickets.NewService(tickets.NewRepository(pool), layer, eval, logger))
	registrationHandler := registrations.NewHandler(registrations.NewService(registrations.NewRepository(pool), layer, eval, logger))
	paymentHandler := payments.NewHandler(payments.NewService(payments.NewRepository(pool), layer, eval, logger))
	mediaHandler := media.NewHandler(media.NewService(media.NewRepository(pool), s3Client, eval, cfg.Storage.MaxUploadBytes, logger))
	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	limiterCtx, stopLimiters := context.WithCancel(context.Background())
	defer stopLimiters()
	loginLimiter := middleware.NewRateLimiter(limiterCtx, middleware.LimiterConfig{RPS: 1, Burst: 5, IdleTTL: 10 * time.Minute})
	uploadLimiter := middleware.NewRateLimiter(limiterCtx, middleware.LimiterConfig{RPS: 0.5, Burst: 5, IdleTTL: 10 * time.Minute})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Actor(jwtService, authRepo))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		cacheStatus := "ok"
		if !rdb.Healthy(c.Request.Context()) {
			cacheStatus = "degraded"
		}
		response.OK(c, gin.H{"status": "ok", "cache": cacheStatus})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", loginLimiter.Middleware(middleware.ByClientIP), authHandler.Login)
	}

	// Users
	router.GET("/users", middleware.RequireRole(access.RoleAdmin), authHandler.List)
	router.GET("/users/:id", middleware.RequireAuth(), authHandler.Get)
	router.POST("/users/groups", middleware.RequireRole(access.RoleAdmin), authHandler.AssignGroup)
	router.DELETE("/users/:id/groups/:group", middleware.RequireRole(access.RoleAdmin), authHandler.RemoveGroup)

	// Events and posters
	router.GET("/events", eventHandler.List)
	router.POST("/events", eventHandler.Create)
	router.POST("/events/upload", uploadLimiter.Middleware(middleware.ByActor), mediaHandler.Upload)
	router.GET("/events/:id", eventHandler.Get)
	router.PATCH("/events/:id", eventHandler.Update)
	router.DELETE("/events/:id", eventHandler.Delete)
	router.GET("/events/:id/poster", mediaHandler.Posters)

	// Tickets
	router.GET("/tickets", ticketHandler.List)
	router.POST("/tickets", ticketHandler.Create)
	router.GET("/tickets/:id", ticketHandler.Get)
	router.PATCH("/tickets/:id", ticketHandler.Update)
	router.DELETE("/tickets/:id", ticketHandler.Delete)

	// Registrations
	router.GET("/registrations", registrationHandler.List)
	router.POST("/registrations", registrationHandler.Create)
	router.GET("/registrations/:id", registrationHandler.Get)
	router.PATCH("/registrations/:id", registrationHandler.Update)
	router.DELETE("/registrations/:id", registrationHandler.Delete)

	// Payments
	router.GET("/payments", paymentHandler.List)
	router.POST("/payments", paymentHandler.Create)
	router.GET("/payments/:id", paymentHandler.Get)
	router.PATCH("/payments/:id", paymentHandler.Update)
	router.DELETE("/payments/:id", paymentHandler.Delete)

	// Reminder delivery log
	router.GET("/email-logs", middleware.RequireRole(access.RoleAdmin), emailLogsHandler.List)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopLimiters()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
