package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/utils"
)

const sessionContextKey = "adminSession"

// AuthMiddleware validates the session token from the admin cookie, or a Bearer
// header, and loads the session into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.SessionCookie)
		if token == "" {
			token = bearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session")
		}

		session, err := utils.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			ClearSessionCookie(c, cfg)
			return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
		}

		c.Locals(sessionContextKey, session)
		return c.Next()
	}
}

// ClearSessionCookie expires the session cookie with the same attributes it was set with.
func ClearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetSession extracts the authenticated session from context.
func GetSession(c *fiber.Ctx) (utils.Session, bool) {
	session, ok := c.Locals(sessionContextKey).(utils.Session)
	return session, ok
}
