package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/adminauth/internal/middleware"
)

// ProfileHandler serves the authenticated admin's profile.
type ProfileHandler struct{}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// GetProfile returns the identity carried by the session.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}
