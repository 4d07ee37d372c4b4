// Package main runs the reminder scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dicoevent/backend/config"
	"github.com/dicoevent/backend/internal/emaillogs"
	"github.com/dicoevent/backend/internal/reminders"
	"github.com/dicoevent/backend/pkg/database"
	"github.com/dicoevent/backend/pkg/mailer"
	"github.com/dicoevent/backend/pkg/redis"
)

func main() {
	once := pflag.Bool("once", false, "run a single reminder batch and exit")
	interval := pflag.Duration("interval", 0, "override REMINDER_INTERVAL (also the window width)")
	pflag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *interval > 0 {
		cfg.Reminder.Interval = *interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	smtp := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPass,
		From:     cfg.Email.FromAddress,
	}, logger)

	scheduler := reminders.NewScheduler(
		reminders.NewRepository(pool),
		smtp,
		emaillogs.NewRepository(pool),
		rdb.Client,
		reminders.Config{Lead: cfg.Reminder.Lead, Interval: cfg.Reminder.Interval, From: cfg.Email.FromAddress},
		logger,
	)

	if *once {
		res, err := scheduler.RunExclusive(ctx)
		if err != nil {
			logger.Error("reminder run failed", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("reminder run done", zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
		return
	}

	scheduler.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
