package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/adminauth/internal/models"
)

// MemoryAuthRepo is an in-process AuthRepo for local runs without Postgres.
type MemoryAuthRepo struct {
	mu            sync.Mutex
	users         map[uuid.UUID]models.AdminUser
	verifications map[uuid.UUID][]models.EmailVerification
}

// NewMemoryAuthRepo constructs an empty MemoryAuthRepo.
func NewMemoryAuthRepo() *MemoryAuthRepo {
	return &MemoryAuthRepo{
		users:         make(map[uuid.UUID]models.AdminUser),
		verifications: make(map[uuid.UUID][]models.EmailVerification),
	}
}

func (r *MemoryAuthRepo) FindByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAuthRepo) FindByID(_ context.Context, id uuid.UUID) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryAuthRepo) CreateUser(_ context.Context, user *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleAdmin
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryAuthRepo) MarkVerified(_ context.Context, userID uuid.UUID) error {
	return r.update(userID, func(u *models.AdminUser) { u.IsVerified = true })
}

func (r *MemoryAuthRepo) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	return r.update(userID, func(u *models.AdminUser) { u.PasswordHash = passwordHash })
}

func (r *MemoryAuthRepo) update(userID uuid.UUID, fn func(*models.AdminUser)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[userID] = u
	return nil
}

func (r *MemoryAuthRepo) FindByUserIDAndOTP(_ context.Context, userID uuid.UUID, code string) (*models.EmailVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.verifications[userID]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].OTP == code {
			v := list[i]
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAuthRepo) ReplaceOTP(_ context.Context, v *models.EmailVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.UpdatedAt = v.CreatedAt
	r.verifications[v.UserID] = []models.EmailVerification{*v}
	return nil
}

func (r *MemoryAuthRepo) DeleteVerification(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.verifications, userID)
	return nil
}

// Verifications returns the stored codes of a user, oldest first.
func (r *MemoryAuthRepo) Verifications(userID uuid.UUID) []models.EmailVerification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.EmailVerification(nil), r.verifications[userID]...)
}

var (
	_ AuthRepo = (*GormAuthRepo)(nil)
	_ AuthRepo = (*MemoryAuthRepo)(nil)
)
