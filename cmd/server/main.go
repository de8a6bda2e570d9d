package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/database"
	"github.com/example/adminauth/internal/handlers"
	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/mailer"
	"github.com/example/adminauth/internal/routes"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := database.OpenAuthRepo(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error(ctx, "database setup failed", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:      "Admin Panel Auth",
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    8 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, repo, mailer.New(cfg, log), cfg, log)

	go func() {
		<-ctx.Done()
		log.Info(context.Background(), "shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error(context.Background(), "shutdown failed", "error", err)
		}
	}()

	log.Info(ctx, "starting server", "port", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Error(ctx, "fiber.Listen error", "error", err)
		os.Exit(1)
	}
}
