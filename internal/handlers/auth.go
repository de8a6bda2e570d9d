package handlers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/middleware"
	"github.com/example/adminauth/internal/services"
	"github.com/example/adminauth/internal/validation"
)

// Screens the client is sent to after each outcome.
const (
	screenRegister       = "register"
	screenOTPVerify      = "otpverify"
	screenLogin          = "login"
	screenProfile        = "profile"
	screenUpdatePassword = "updatepassword"
)

// AuthHandler bundles dependencies for admin authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
	log  logging.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config, log logging.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg, log: log}
}

func outcome(c *fiber.Ctx, status int, message, redirect string) error {
	return c.Status(status).JSON(fiber.Map{
		"success":  status < fiber.StatusBadRequest,
		"message":  message,
		"redirect": redirect,
	})
}

type registerRequest struct {
	Name     string `form:"name" json:"name" validate:"required"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Register creates an unverified admin account from a multipart form with an image.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	const missing = "All fields are required, including an image."

	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	file, err := c.FormFile("image")
	if err != nil || req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, missing)
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ext, err := imageExtension(file)
	if errors.Is(err, errNotImage) {
		return fiber.NewError(fiber.StatusBadRequest, errNotImage.Error())
	}
	if err != nil {
		h.log.Error(c.UserContext(), "read upload", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred.")
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.log.Error(c.UserContext(), "create upload dir", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred.")
	}
	imagePath := filepath.Join(h.cfg.UploadDir, uuid.NewString()+ext)
	if err := c.SaveFile(file, imagePath); err != nil {
		h.log.Error(c.UserContext(), "save upload", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred.")
	}

	_, err = h.auth.Register(c.UserContext(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    filepath.ToSlash(imagePath),
	})
	if err != nil {
		_ = os.Remove(imagePath)
	}

	switch {
	case err == nil:
		return outcome(c, fiber.StatusCreated, "Register Successfully OTP sent your email", screenOTPVerify)
	case errors.Is(err, services.ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, missing)
	case errors.Is(err, services.ErrPasswordTooShort):
		return fiber.NewError(fiber.StatusBadRequest, "Password should be at least 8 characters long.")
	case errors.Is(err, services.ErrPasswordTooLong):
		return fiber.NewError(fiber.StatusBadRequest, "Password should be at most 72 bytes long.")
	case errors.Is(err, services.ErrEmailTaken):
		return outcome(c, fiber.StatusConflict, "User already exist with this email", screenRegister)
	default:
		h.log.Error(c.UserContext(), "registration failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred.")
	}
}

type verifyOTPRequest struct {
	Email string `form:"email" json:"email" validate:"required,email"`
	OTP   string `form:"otp" json:"otp" validate:"required"`
}

// VerifyOTP confirms the emailed code. Wrong or expired codes trigger a new one.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	err := h.auth.VerifyOTP(c.UserContext(), req.Email, req.OTP)
	switch {
	case err == nil:
		return outcome(c, fiber.StatusOK, "Your Email is Verified", screenLogin)
	case errors.Is(err, services.ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	case errors.Is(err, services.ErrUserNotFound):
		return outcome(c, fiber.StatusNotFound, "This email is not registered", screenOTPVerify)
	case errors.Is(err, services.ErrAlreadyVerified):
		return outcome(c, fiber.StatusConflict, "This email is already verified", screenOTPVerify)
	case errors.Is(err, services.ErrInvalidOTP):
		return outcome(c, fiber.StatusBadRequest, "Invalid OTP new OTP is successfully sent you email", screenOTPVerify)
	case errors.Is(err, services.ErrOTPExpired):
		return outcome(c, fiber.StatusGone, "OTP expired new OTP is successfully sent your email", screenOTPVerify)
	default:
		h.log.Error(c.UserContext(), "otp verification failed", "error", err)
		return outcome(c, fiber.StatusInternalServerError, "Unable to verify email please try again later", screenOTPVerify)
	}
}

type resendOTPRequest struct {
	Email string `form:"email" json:"email" validate:"required,email"`
}

// ResendOTP emails a fresh code to an unverified account.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req resendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	err := h.auth.ResendOTP(c.UserContext(), req.Email)
	switch {
	case err == nil:
		return outcome(c, fiber.StatusOK, "New OTP is successfully sent your email", screenOTPVerify)
	case errors.Is(err, services.ErrUserNotFound):
		return outcome(c, fiber.StatusNotFound, "This email is not registered", screenOTPVerify)
	case errors.Is(err, services.ErrAlreadyVerified):
		return outcome(c, fiber.StatusConflict, "This email is already verified", screenLogin)
	default:
		h.log.Error(c.UserContext(), "otp resend failed", "error", err)
		return outcome(c, fiber.StatusInternalServerError, "Unable to send OTP please try again later", screenOTPVerify)
	}
}

type loginRequest struct {
	Email    string `form:"email" json:"email" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Login authenticates a verified admin and sets the session cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	case errors.Is(err, services.ErrUserNotFound):
		return outcome(c, fiber.StatusUnauthorized, "User Not Found", screenLogin)
	case errors.Is(err, services.ErrNotVerified):
		return outcome(c, fiber.StatusForbidden, "User is Not Verified", screenLogin)
	case errors.Is(err, services.ErrNotAdmin):
		return outcome(c, fiber.StatusForbidden, "Admin pannel only can access by admin", screenLogin)
	case errors.Is(err, services.ErrInvalidCredentials):
		return outcome(c, fiber.StatusUnauthorized, "Invalid Credential", screenLogin)
	case errors.Is(err, services.ErrSessionNotIssued):
		h.log.Error(c.UserContext(), "session signing failed", "error", err)
		return outcome(c, fiber.StatusInternalServerError, "Something went wrong", screenLogin)
	default:
		h.log.Error(c.UserContext(), "login failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "An unexpected error occurred")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		Secure:   h.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Login Successfully",
		"redirect": screenProfile,
		"token":    res.Token,
		"user":     res.Session,
	})
}

// Logout clears the session cookie. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	middleware.ClearSessionCookie(c, h.cfg)
	return outcome(c, fiber.StatusOK, "Logout Successfully", screenLogin)
}

type updatePasswordRequest struct {
	OldPassword     string `form:"oldPassword" json:"oldPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

// UpdatePassword changes the password of the authenticated admin.
func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	session, ok := middleware.GetSession(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.auth.UpdatePassword(c.UserContext(), session.UserID, services.UpdatePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	switch {
	case err == nil:
		return outcome(c, fiber.StatusOK, "Password updated successfully", screenProfile)
	case errors.Is(err, services.ErrMissingFields):
		return outcome(c, fiber.StatusBadRequest, "All fields are required", screenUpdatePassword)
	case errors.Is(err, services.ErrPasswordTooShort):
		return outcome(c, fiber.StatusBadRequest, "Password should be atleast 8 characters long", screenUpdatePassword)
	case errors.Is(err, services.ErrPasswordTooLong):
		return outcome(c, fiber.StatusBadRequest, "Password should be at most 72 bytes long", screenUpdatePassword)
	case errors.Is(err, services.ErrPasswordMismatch):
		return outcome(c, fiber.StatusBadRequest, "Password don't match", screenUpdatePassword)
	case errors.Is(err, services.ErrUserNotFound):
		return outcome(c, fiber.StatusNotFound, "User not found", screenUpdatePassword)
	case errors.Is(err, services.ErrWrongPassword):
		return outcome(c, fiber.StatusUnauthorized, "Old password is incorrect", screenUpdatePassword)
	default:
		h.log.Error(c.UserContext(), "password update failed", "error", err)
		return outcome(c, fiber.StatusInternalServerError, "Error updating password", screenUpdatePassword)
	}
}
