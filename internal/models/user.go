package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the only role allowed into the admin panel.
const RoleAdmin = "admin"

// AdminUser represents an account of the admin panel.
type AdminUser struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"default:admin" json:"role"`
	IsVerified   bool   `json:"is_verified"`
	Image        string `json:"image"`
}

// EmailVerification keeps the OTP code last emailed to a user.
type EmailVerification struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	OTP    string    `json:"otp"`
}

// ExpiresAt returns the moment the code stops being accepted.
func (v *EmailVerification) ExpiresAt(ttl time.Duration) time.Time {
	return v.CreatedAt.Add(ttl)
}
