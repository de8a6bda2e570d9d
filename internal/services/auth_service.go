package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/models"
	"github.com/example/adminauth/internal/repository"
	"github.com/example/adminauth/internal/utils"
)

// Outcomes of the auth flows. Handlers map them to responses with errors.Is.
var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrPasswordTooShort   = fmt.Errorf("password should be at least %d characters long", utils.MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes long", utils.MaxPasswordBytes)
	ErrEmailTaken         = errors.New("user already exist with this email")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrNotVerified        = errors.New("user is not verified")
	ErrNotAdmin           = errors.New("admin panel only can be accessed by admin")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("passwords don't match")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrSessionNotIssued   = errors.New("session token not issued")
)

// notifyTimeout bounds a registration notification running after the response.
const notifyTimeout = 10 * time.Second

// RegistrationNotifier is told about new accounts. Failures are logged, never returned.
type RegistrationNotifier interface {
	NotifyAdminRegistered(ctx context.Context, user *models.AdminUser) error
}

// AuthService implements register, OTP verification, login and password update.
type AuthService struct {
	repo     repository.AuthRepo
	otp      *OTPService
	notifier RegistrationNotifier
	secret   string
	ttl      time.Duration
	now      func() time.Time
	log      logging.Logger
}

// NewAuthService constructs an AuthService. notifier may be nil.
func NewAuthService(repo repository.AuthRepo, otp *OTPService, notifier RegistrationNotifier, cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		otp:      otp,
		notifier: notifier,
		secret:   cfg.JWTSecret,
		ttl:      cfg.TokenExpires,
		now:      time.Now,
		log:      log.With("component", "auth"),
	}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Image    string
}

// Register creates an unverified admin account and emails it a verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.AdminUser, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" || in.Image == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if err := checkPasswordLength(in.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.AdminUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsVerified:   false,
		Image:        in.Image,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.otp.Issue(ctx, user); err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	s.notifyRegistered(ctx, *user)

	s.log.Info(ctx, "admin registered", "user_id", user.ID.String())
	return user, nil
}

// notifyRegistered runs the notifier in the background on a copy of the user. The
// context outlives the request but not notifyTimeout.
func (s *AuthService) notifyRegistered(ctx context.Context, user models.AdminUser) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.NotifyAdminRegistered(ctx, &user); err != nil {
			s.log.Warn(ctx, "registration notification failed", "error", err)
		}
	}()
}

// VerifyOTP checks the code emailed to the user. A wrong or expired code makes a new
// one get issued before ErrInvalidOTP or ErrOTPExpired is returned.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrMissingFields
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	v, err := s.repo.FindByUserIDAndOTP(ctx, user.ID, code)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.otp.Issue(ctx, user); err != nil {
			return fmt.Errorf("reissue otp: %w", err)
		}
		return ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	if s.otp.Expired(v) {
		if err := s.otp.Issue(ctx, user); err != nil {
			return fmt.Errorf("reissue otp: %w", err)
		}
		return ErrOTPExpired
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	if err := s.repo.DeleteVerification(ctx, user.ID); err != nil {
		return err
	}

	s.log.Info(ctx, "admin email verified", "user_id", user.ID.String())
	return nil
}

// ResendOTP issues a new code to an unverified account.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	return s.otp.Issue(ctx, user)
}

// LoginResult carries the signed session of a successful login.
type LoginResult struct {
	Token   string
	Session utils.Session
}

// Login authenticates a verified admin and signs a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}
	if user.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	session := utils.Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Image:  user.Image,
	}
	token, expires, err := utils.GenerateToken(s.secret, session, s.now(), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotIssued, err)
	}
	session.ExpiresAt = expires

	s.log.Info(ctx, "admin logged in", "user_id", user.ID.String())
	return &LoginResult{Token: token, Session: session}, nil
}

// UpdatePasswordInput is the change-password form.
type UpdatePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// UpdatePassword replaces the password of the session's user after checking the old one.
func (s *AuthService) UpdatePassword(ctx context.Context, userID uuid.UUID, in UpdatePasswordInput) error {
	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if err := checkPasswordLength(in.NewPassword); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, in.OldPassword) {
		return ErrWrongPassword
	}

	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.log.Info(ctx, "admin password updated", "user_id", user.ID.String())
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func checkPasswordLength(password string) error {
	switch {
	case len(password) < utils.MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > utils.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
