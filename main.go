package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"storekode/internal/app"
	"storekode/internal/config"
	"storekode/internal/database"
	ctxlog "storekode/internal/log"
	"storekode/internal/services"
	"storekode/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(os.Stdout, cfg.Env, cfg.SlogLevel())

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.LogLevel == "debug")
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db: %v", err)
	}

	// --- RabbitMQ (optional) ---
	// The interface stays nil when events are disabled so services skip publishing.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		logger.Info("RABBITMQ_URL not set, domain events disabled")
	}

	fiberApp := app.New(app.Deps{
		Config:    cfg,
		DB:        db,
		Publisher: publisher,
		Logger:    logger,
		AccessLog: os.Stdout,
	})

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "addr", cfg.AppPort, "env", cfg.Env)
		if err := fiberApp.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logger.Info("shutting down...")

	if err := fiberApp.Shutdown(); err != nil {
		logger.Error("fiber shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err != nil {
		logger.Error("database handle", "error", err)
	} else if err := sqlDB.Close(); err != nil {
		logger.Error("database close", "error", err)
	}
	logger.Info("server gracefully stopped")
}
