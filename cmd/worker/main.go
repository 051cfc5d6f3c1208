// Package main runs the background worker: notification jobs, order expiry
// and activity status sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldday/backend/config"
	"github.com/fieldday/backend/internal/activities"
	"github.com/fieldday/backend/internal/notifications"
	"github.com/fieldday/backend/internal/orders"
	"github.com/fieldday/backend/internal/registrations"
	"github.com/fieldday/backend/internal/worker"
	"github.com/fieldday/backend/pkg/database"
	"github.com/fieldday/backend/pkg/queue"
	"github.com/fieldday/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	notifRepo := notifications.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	activityRepo := activities.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)

	w := worker.New(jobQueue, notifRepo, orderRepo, activityRepo, registrationRepo,
		time.Duration(cfg.Worker.OrderSweepInterval)*time.Second,
		time.Duration(cfg.Worker.StatusSweepInterval)*time.Second,
		logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
