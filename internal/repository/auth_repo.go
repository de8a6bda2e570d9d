package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/adminauth/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an insert hits the unique email index.
	ErrDuplicateEmail = errors.New("email already registered")
)

// AuthRepo is the persistence the admin auth flows depend on.
type AuthRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error)
	CreateUser(ctx context.Context, user *models.AdminUser) error
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	// FindByUserIDAndOTP returns the verification row holding code for the user.
	FindByUserIDAndOTP(ctx context.Context, userID uuid.UUID, code string) (*models.EmailVerification, error)
	// ReplaceOTP drops every earlier verification row of the user and stores v.
	ReplaceOTP(ctx context.Context, v *models.EmailVerification) error
	DeleteVerification(ctx context.Context, userID uuid.UUID) error
}

// GormAuthRepo implements AuthRepo on gorm.
type GormAuthRepo struct {
	db *gorm.DB
}

// NewGormAuthRepo constructs a GormAuthRepo.
func NewGormAuthRepo(db *gorm.DB) *GormAuthRepo {
	return &GormAuthRepo{db: db}
}

func (r *GormAuthRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap("find user by email", err)
	}
	return &user, nil
}

func (r *GormAuthRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrap("find user by id", err)
	}
	return &user, nil
}

func (r *GormAuthRepo) CreateUser(ctx context.Context, user *models.AdminUser) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormAuthRepo) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	return r.updateUser(ctx, userID, "is_verified", true)
}

func (r *GormAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.updateUser(ctx, userID, "password_hash", passwordHash)
}

func (r *GormAuthRepo) updateUser(ctx context.Context, userID uuid.UUID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.AdminUser{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormAuthRepo) FindByUserIDAndOTP(ctx context.Context, userID uuid.UUID, code string) (*models.EmailVerification, error) {
	var v models.EmailVerification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND otp = ?", userID, code).
		Order("created_at desc").
		First(&v).Error
	if err != nil {
		return nil, wrap("find verification", err)
	}
	return &v, nil
}

func (r *GormAuthRepo) ReplaceOTP(ctx context.Context, v *models.EmailVerification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", v.UserID).Delete(&models.EmailVerification{}).Error; err != nil {
			return fmt.Errorf("delete previous verification: %w", err)
		}
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("create verification: %w", err)
		}
		return nil
	})
}

func (r *GormAuthRepo) DeleteVerification(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.EmailVerification{}).Error; err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// unique_violation
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == pgUniqueViolation
	}
	return false
}
