// Package main runs the activity platform HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldday/backend/config"
	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/auth"
	"github.com/fieldday/backend/internal/checkins"
	"github.com/fieldday/backend/internal/comments"
	"github.com/fieldday/backend/internal/middleware"
	"github.com/fieldday/backend/internal/notifications"
	"github.com/fieldday/backend/internal/orders"
	"github.com/fieldday/backend/internal/realtime"
	"github.com/fieldday/backend/internal/registrations"
	"github.com/fieldday/backend/pkg/database"
	"github.com/fieldday/backend/pkg/queue"
	"github.com/fieldday/backend/pkg/redis"
	"github.com/fieldday/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
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

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Activities
	activityRepo := activities.NewRepository(pool)
	activityHandler := activities.NewHandler(activityRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, activityRepo, jobQueue, logger)

	// Orders
	orderRepo := orders.NewRepository(pool)
	orderHandler := orders.NewHandler(orderRepo, activityRepo, jobQueue, logger)

	// Check-ins
	checkinRepo := checkins.NewRepository(pool)
	checkinHandler := checkins.NewHandler(checkinRepo, activityRepo, hub, logger)

	// Comments and ratings
	commentRepo := comments.NewRepository(pool)
	commentHandler := comments.NewHandler(commentRepo, activityRepo, registrationRepo, logger)

	// Notifications
	notifRepo := notifications.NewRepository(pool)
	notifHandler := notifications.NewHandler(notifRepo, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public browse
	router.GET("/activities", activityHandler.List)
	router.GET("/activities/:id", activityHandler.GetByID)
	router.GET("/activities/:id/rating", commentHandler.Rating)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/users/me", authHandler.Me)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Activities
		api.POST("/activities", activityHandler.Create)
		api.PATCH("/activities/:id", activityHandler.Update)
		api.POST("/activities/:id/status", activityHandler.TransitionStatus)

		// Registrations
		api.POST("/activities/:id/registrations", registrationHandler.Apply)
		api.GET("/activities/:id/registrations", registrationHandler.ListByActivity)
		api.GET("/activities/:id/registrations/me", registrationHandler.MyStatus)
		api.GET("/registrations", registrationHandler.ListMine)
		api.POST("/registrations/:id/cancel", registrationHandler.Cancel)
		api.POST("/registrations/:id/review", registrationHandler.Review)

		// Orders
		api.POST("/registrations/:id/order", orderHandler.Create)
		api.GET("/orders", orderHandler.ListMine)
		api.GET("/orders/:id", orderHandler.Get)
		api.POST("/orders/:id/pay", orderHandler.Pay)
		api.POST("/orders/:id/cancel", orderHandler.Cancel)
		api.POST("/orders/:id/refund", orderHandler.Refund)

		// Check-ins
		api.POST("/activities/:id/check-in/code", checkinHandler.GenerateCode)
		api.DELETE("/activities/:id/check-in/code", checkinHandler.DisableCode)
		api.POST("/activities/:id/check-in/validate", checkinHandler.Validate)
		api.POST("/activities/:id/check-in", checkinHandler.CheckIn)
		api.GET("/activities/:id/check-ins", checkinHandler.List)

		// Comments and ratings
		api.POST("/activities/:id/comments", commentHandler.Create)
		api.GET("/activities/:id/comments", commentHandler.List)
		api.PATCH("/comments/:id", commentHandler.Update)
		api.DELETE("/comments/:id", commentHandler.Delete)
		api.POST("/comments/:id/like", commentHandler.ToggleLike)

		// Notifications
		api.GET("/notifications", notifHandler.List)
		api.PATCH("/notifications/:id/read", notifHandler.MarkRead)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

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
