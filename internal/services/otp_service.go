package services

import (
	"context"
	"fmt"
	"time"

	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/mailer"
	"github.com/example/adminauth/internal/models"
	"github.com/example/adminauth/internal/repository"
	"github.com/example/adminauth/internal/utils"
)

// OTPService issues and checks email verification codes.
type OTPService struct {
	repo     repository.AuthRepo
	mail     mailer.Sender
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
	log      logging.Logger
}

// NewOTPService constructs an OTPService.
func NewOTPService(repo repository.AuthRepo, mail mailer.Sender, ttl time.Duration, log logging.Logger) *OTPService {
	return &OTPService{
		repo:     repo,
		mail:     mail,
		ttl:      ttl,
		now:      time.Now,
		generate: utils.GenerateOTP,
		log:      log,
	}
}

// Issue stores a fresh code for the user, superseding any earlier one, and emails it.
func (s *OTPService) Issue(ctx context.Context, user *models.AdminUser) error {
	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	v := &models.EmailVerification{UserID: user.ID, OTP: code}
	v.CreatedAt = s.now()
	if err := s.repo.ReplaceOTP(ctx, v); err != nil {
		return err
	}

	body, err := mailer.RenderOTP(user.Name, code, s.ttl)
	if err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}
	if err := s.mail.Send(ctx, user.Email, mailer.OTPSubject, body); err != nil {
		return err
	}

	s.log.Info(ctx, "otp issued", "user_id", user.ID.String())
	return nil
}

// Expired reports whether the code is past its validity window.
func (s *OTPService) Expired(v *models.EmailVerification) bool {
	return s.now().After(v.ExpiresAt(s.ttl))
}
