package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/handlers"
	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/mailer"
	"github.com/example/adminauth/internal/middleware"
	"github.com/example/adminauth/internal/repository"
	"github.com/example/adminauth/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, repo repository.AuthRepo, mail mailer.Sender, cfg *config.Config, log logging.Logger) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log)
	otpService := services.NewOTPService(repo, mail, cfg.OTPExpires, log)
	authService := services.NewAuthService(repo, otpService, telegramService, cfg, log)

	authHandler := handlers.NewAuthHandler(authService, cfg, log)
	profileHandler := handlers.NewProfileHandler()

	app.Static("/uploads", cfg.UploadDir)

	admin := app.Group("/api/admin")

	// Auth routes
	auth := admin.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		auth.Use(limiter.New(limiter.Config{
			Max:        cfg.AuthRateLimit,
			Expiration: time.Minute,
		}))
	}
	auth.Post("/register", authHandler.Register)
	auth.Post("/otp/verify", authHandler.VerifyOTP)
	auth.Post("/otp/resend", authHandler.ResendOTP)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	requireAuth := middleware.AuthMiddleware(cfg)
	admin.Get("/profile", requireAuth, profileHandler.GetProfile)
	auth.Put("/password", requireAuth, authHandler.UpdatePassword)
}
