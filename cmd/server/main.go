// Package main is the entry point for the boltcard service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boltcard/internal/config"
	"boltcard/internal/lightning"
	"boltcard/internal/repositories"
	"boltcard/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if config.IsProduction() {
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Info("Connected to database with connection pooling")

	// Periodic connection pool stats.
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			stats := sqlDB.Stats()
			log.WithFields(logrus.Fields{
				"open":          stats.OpenConnections,
				"idle":          stats.Idle,
				"in_use":        stats.InUse,
				"wait_count":    stats.WaitCount,
				"wait_duration": stats.WaitDuration.String(),
			}).Debug("DB pool stats")
		}
	}()

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Warnf("Failed to close database connection: %v", err)
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Warnf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	engine := lightning.NewLNbitsClient(lightning.LNbitsConfig{
		BaseURL:      config.GetEnv("LNBITS_URL", "http://localhost:5000"),
		AdminKey:     config.GetEnv("LNBITS_ADMIN_KEY", ""),
		Currency:     config.GetEnv("LNBITS_CURRENCY", "EUR"),
		PollInterval: config.GetDurationEnv("LNBITS_POLL_INTERVAL", 5*time.Second),
	}, log)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	listener := routes.SetupRoutes(app, repositories.DB, engine, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := listener.Start(ctx); err != nil {
		log.Fatalf("Failed to start settlement listener: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		listener.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warnf("Server shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
