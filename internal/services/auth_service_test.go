package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/logging"
	"github.com/example/adminauth/internal/models"
	"github.com/example/adminauth/internal/repository"
	"github.com/example/adminauth/internal/utils"
)

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type notification struct {
	email       string
	hasDeadline bool
	ctxErr      error
}

type fakeNotifier struct {
	notified chan notification
	release  chan struct{}
	err      error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notified: make(chan notification, 64)}
}

func (f *fakeNotifier) NotifyAdminRegistered(ctx context.Context, user *models.AdminUser) error {
	if f.release != nil {
		<-f.release
	}
	_, hasDeadline := ctx.Deadline()
	f.notified <- notification{email: user.Email, hasDeadline: hasDeadline, ctxErr: ctx.Err()}
	return f.err
}

func (f *fakeNotifier) wait(t *testing.T) notification {
	t.Helper()
	select {
	case n := <-f.notified:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("registration notification not sent")
		return notification{}
	}
}

type fixture struct {
	svc      *AuthService
	repo     *repository.MemoryAuthRepo
	mail     *fakeSender
	notifier *fakeNotifier
	now      time.Time
	codes    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repository.NewMemoryAuthRepo(),
		mail:     &fakeSender{},
		notifier: newFakeNotifier(),
		now:      time.Now(),
	}
	cfg := &config.Config{JWTSecret: "secret", TokenExpires: 24 * time.Hour, OTPExpires: 15 * time.Minute}

	otp := NewOTPService(f.repo, f.mail, cfg.OTPExpires, logging.Discard())
	otp.now = func() time.Time { return f.now }
	otp.generate = func() (string, error) {
		f.codes++
		return fmt.Sprintf("%06d", f.codes), nil
	}

	f.svc = NewAuthService(f.repo, otp, f.notifier, cfg, logging.Discard())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) lastCode() string {
	return fmt.Sprintf("%06d", f.codes)
}

func (f *fixture) register(t *testing.T, email, password string) *models.AdminUser {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ada", Email: email, Password: password, Image: "uploads/ada.png",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) registerVerified(t *testing.T, email, password string) *models.AdminUser {
	t.Helper()
	user := f.register(t, email, password)
	require.NoError(t, f.svc.VerifyOTP(context.Background(), email, f.lastCode()))
	return user
}

func TestRegister_CreatesUnverifiedUserAndSendsOTP(t *testing.T) {
	f := newFixture(t)

	user := f.register(t, " Ada@Example.com ", "password1")

	stored, err := f.repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.False(t, stored.IsVerified)
	assert.Equal(t, models.RoleAdmin, stored.Role)
	assert.NotEqual(t, "password1", stored.PasswordHash)
	assert.True(t, utils.CheckPassword(stored.PasswordHash, "password1"))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ada@example.com", f.mail.sent[0].to)
	assert.Contains(t, f.mail.sent[0].body, f.lastCode())
	assert.Len(t, f.repo.Verifications(user.ID), 1)
	assert.Equal(t, "ada@example.com", f.notifier.wait(t).email)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: "password1", Image: "x"}, ErrMissingFields},
		{"missing email", RegisterInput{Name: "A", Password: "password1", Image: "x"}, ErrMissingFields},
		{"missing password", RegisterInput{Name: "A", Email: "a@example.com", Image: "x"}, ErrMissingFields},
		{"missing image", RegisterInput{Name: "A", Email: "a@example.com", Password: "password1"}, ErrMissingFields},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "1234567", Image: "x"}, ErrPasswordTooShort},
		{"long password", RegisterInput{Name: "A", Email: "a@example.com", Password: strings.Repeat("p", 80), Image: "x"}, ErrPasswordTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.repo.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.mail.sent)
}

func TestRegister_LongestPasswordAccepted(t *testing.T) {
	f := newFixture(t)
	password := strings.Repeat("p", utils.MaxPasswordBytes)

	f.registerVerified(t, "ada@example.com", password)

	_, err := f.svc.Login(context.Background(), "ada@example.com", password)
	assert.NoError(t, err)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada@example.com", "password1")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ADA@example.com", Password: "password2", Image: "x",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, f.mail.sent, 1)
}

func TestRegister_MailFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "password1", Image: "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestRegister_NotifierFailureIgnored(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("telegram down")

	f.register(t, "ada@example.com", "password1")
	f.notifier.wait(t)
}

func TestRegister_DoesNotWaitForNotifier(t *testing.T) {
	f := newFixture(t)
	f.notifier.release = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.svc.Register(ctx, RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "password1", Image: "x",
	})
	require.NoError(t, err)
	cancel()

	select {
	case <-f.notifier.notified:
		t.Fatal("notification finished before it was released")
	default:
	}

	close(f.notifier.release)
	n := f.notifier.wait(t)
	assert.Equal(t, "ada@example.com", n.email)
	assert.True(t, n.hasDeadline)
	assert.NoError(t, n.ctxErr)
}

func TestVerifyOTP_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ada@example.com", "password1")

	f.now = f.now.Add(15 * time.Minute)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ada@example.com", f.lastCode()))

	stored, err := f.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, f.repo.Verifications(user.ID))

	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "ada@example.com", f.lastCode()), ErrAlreadyVerified)
}

func TestVerifyOTP_InvalidCodeReissues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ada@example.com", "password1")
	first := f.lastCode()

	err := f.svc.VerifyOTP(ctx, "ada@example.com", "999999")
	assert.ErrorIs(t, err, ErrInvalidOTP)
	require.Len(t, f.mail.sent, 2)

	list := f.repo.Verifications(user.ID)
	require.Len(t, list, 1)
	assert.NotEqual(t, first, list[0].OTP)

	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "ada@example.com", first), ErrInvalidOTP)
	require.NoError(t, f.svc.VerifyOTP(ctx, "ada@example.com", f.lastCode()))
}

func TestVerifyOTP_ExpiredReissues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ada@example.com", "password1")
	code := f.lastCode()

	f.now = f.now.Add(15*time.Minute + time.Second)
	err := f.svc.VerifyOTP(ctx, "ada@example.com", code)
	assert.ErrorIs(t, err, ErrOTPExpired)
	assert.Len(t, f.mail.sent, 2)

	stored, err := f.repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified)

	require.NoError(t, f.svc.VerifyOTP(ctx, "ada@example.com", f.lastCode()))
}

func TestVerifyOTP_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "", "123456"), ErrMissingFields)
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "ada@example.com", " "), ErrMissingFields)
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "ghost@example.com", "123456"), ErrUserNotFound)
	assert.Empty(t, f.mail.sent)
}

func TestResendOTP(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "ada@example.com", "password1")

	require.NoError(t, f.svc.ResendOTP(ctx, "ada@example.com"))
	assert.Len(t, f.mail.sent, 2)
	assert.Len(t, f.repo.Verifications(user.ID), 1)

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "ghost@example.com"), ErrUserNotFound)
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, ""), ErrMissingFields)

	require.NoError(t, f.svc.VerifyOTP(ctx, "ada@example.com", f.lastCode()))
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "ada@example.com"), ErrAlreadyVerified)
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	user := f.registerVerified(t, "ada@example.com", "password1")

	res, err := f.svc.Login(context.Background(), "ada@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.Session.UserID)
	assert.Equal(t, f.now.Add(24*time.Hour), res.Session.ExpiresAt)

	s, err := utils.ParseToken("secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, s.UserID)
	assert.Equal(t, "Ada", s.Name)
	assert.Equal(t, "ada@example.com", s.Email)
	assert.Equal(t, "uploads/ada.png", s.Image)
}

func TestLogin_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.register(t, "pending@example.com", "password1")
	f.registerVerified(t, "ada@example.com", "password1")

	editor := &models.AdminUser{Name: "Ed", Email: "ed@example.com", Role: "editor", IsVerified: true}
	hash, err := utils.HashPassword("password1")
	require.NoError(t, err)
	editor.PasswordHash = hash
	require.NoError(t, f.repo.CreateUser(ctx, editor))

	cases := []struct {
		name, email, password string
		want                  error
	}{
		{"missing email", "", "password1", ErrMissingFields},
		{"missing password", "ada@example.com", "", ErrMissingFields},
		{"unknown", "ghost@example.com", "password1", ErrUserNotFound},
		{"unverified", "pending@example.com", "password1", ErrNotVerified},
		{"not admin", "ed@example.com", "password1", ErrNotAdmin},
		{"wrong password", "ada@example.com", "password2", ErrInvalidCredentials},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.Login(ctx, tc.email, tc.password)
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, res)
		})
	}
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.registerVerified(t, "ada@example.com", "password1")

	cases := []struct {
		name string
		in   UpdatePasswordInput
		want error
	}{
		{"missing", UpdatePasswordInput{OldPassword: "password1", NewPassword: "newpassword"}, ErrMissingFields},
		{"too short", UpdatePasswordInput{"password1", "short", "short"}, ErrPasswordTooShort},
		{"too long", UpdatePasswordInput{"password1", strings.Repeat("p", 73), strings.Repeat("p", 73)}, ErrPasswordTooLong},
		{"mismatch", UpdatePasswordInput{"password1", "newpassword", "newpassw0rd"}, ErrPasswordMismatch},
		{"wrong old", UpdatePasswordInput{"password9", "newpassword", "newpassword"}, ErrWrongPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.UpdatePassword(ctx, user.ID, tc.in), tc.want)
		})
	}

	err := f.svc.UpdatePassword(ctx, uuid.New(), UpdatePasswordInput{"password1", "newpassword", "newpassword"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, f.svc.UpdatePassword(ctx, user.ID, UpdatePasswordInput{"password1", "newpassword", "newpassword"}))

	_, err = f.svc.Login(ctx, "ada@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ada@example.com", "newpassword")
	assert.NoError(t, err)
}

func TestLogin_SigningFailure(t *testing.T) {
	f := newFixture(t)
	f.registerVerified(t, "ada@example.com", "password1")
	f.svc.secret = ""

	_, err := f.svc.Login(context.Background(), "ada@example.com", "password1")
	assert.ErrorIs(t, err, ErrSessionNotIssued)
}
