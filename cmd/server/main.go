package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecowatcher/backend/internal/cache"
	"github.com/ecowatcher/backend/internal/config"
	"github.com/ecowatcher/backend/internal/database"
	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/logger"
	"github.com/ecowatcher/backend/internal/routes"
	"github.com/ecowatcher/backend/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("admin seed failed")
	}

	deps := routes.Deps{
		DB:       db,
		Config:   cfg,
		Notifier: services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat),
	}
	if cfg.SMTPHost != "" {
		deps.Mailer = services.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	}

	if cfg.RedisAddr != "" {
		rdb := cache.New(cfg.RedisAddr)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, status cache disabled")
			_ = rdb.Close()
		} else {
			deps.Cache = cache.NewStatusCache(rdb)
			defer rdb.Close()
		}
		cancel()
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, 256)
		producer.Start()
		deps.Events = producer
		log.WithField("topic", cfg.KafkaTopic).Info("kafka producer started")
	}

	app := routes.NewApp(deps)

	go func() {
		log.Infof("Starting server on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.WithError(err).Fatal("fiber.Listen error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	if producer != nil {
		producer.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
