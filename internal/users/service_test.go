package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type fakeStore struct {
	users         map[string]*domain.User
	verifications map[string]*domain.Verification
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*domain.User{},
		verifications: map[string]*domain.Verification{},
	}
}

func (f *fakeStore) Create(_ context.Context, user *domain.User) error {
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Update(_ context.Context, user *domain.User) error {
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) CreateVerification(_ context.Context, userID string) (*domain.Verification, error) {
	for id, v := range f.verifications {
		if v.UserID == userID {
			delete(f.verifications, id)
		}
	}
	f.nextID++
	v := &domain.Verification{
		ID:     fmt.Sprintf("verification-%d", f.nextID),
		Code:   fmt.Sprintf("code-%d", f.nextID),
		UserID: userID,
	}
	f.verifications[v.ID] = v
	return v, nil
}

func (f *fakeStore) GetVerificationByCode(_ context.Context, code string) (*domain.Verification, error) {
	for _, v := range f.verifications {
		if v.Code == code {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DeleteVerification(_ context.Context, id string) error {
	delete(f.verifications, id)
	return nil
}

type recordingMailer struct {
	emails []string
	codes  []string
}

func (m *recordingMailer) SendVerificationEmail(_ context.Context, email, code string) error {
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	return nil
}

func newTestService(store *fakeStore, mailer Mailer) (*Service, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, tokens, mailer, logger), tokens
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mailer := &recordingMailer{}
	svc, _ := newTestService(store, mailer)

	user, err := svc.CreateAccount(ctx, "client@example.com", "hunter2", domain.RoleClient)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected user ID to be set")
	}
	if user.Verified {
		t.Fatal("expected new account to start unverified")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2")) != nil {
		t.Fatal("expected password to be hashed and verifiable")
	}
	if user.PasswordHash == "hunter2" {
		t.Fatal("expected password to not be stored in plain text")
	}

	if len(mailer.emails) != 1 || mailer.emails[0] != "client@example.com" {
		t.Fatalf("expected one verification email to client@example.com, got %v", mailer.emails)
	}
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore(), &recordingMailer{})

	if _, err := svc.CreateAccount(ctx, "dup@example.com", "pw", domain.RoleOwner); err != nil {
		t.Fatalf("first CreateAccount failed: %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "dup@example.com", "pw", domain.RoleClient); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateAccountRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), &recordingMailer{})

	if _, err := svc.CreateAccount(context.Background(), "x@example.com", "pw", "ADMIN"); err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, tokens := newTestService(store, &recordingMailer{})

	user, err := svc.CreateAccount(ctx, "login@example.com", "correct-horse", domain.RoleDelivery)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	token, err := svc.Login(ctx, "login@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	subject, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("failed to parse issued token: %v", err)
	}
	if subject != user.ID {
		t.Fatalf("expected token subject %s, got %s", user.ID, subject)
	}

	if _, err := svc.Login(ctx, "login@example.com", "wrong"); err != ErrWrongCredentials {
		t.Fatalf("expected ErrWrongCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "whatever"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestEditProfileEmailChangeResetsVerification(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mailer := &recordingMailer{}
	svc, _ := newTestService(store, mailer)

	user, err := svc.CreateAccount(ctx, "old@example.com", "pw", domain.RoleClient)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := svc.VerifyEmail(ctx, mailer.codes[0]); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	updated, err := svc.EditProfile(ctx, user, "new@example.com", "")
	if err != nil {
		t.Fatalf("EditProfile failed: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("expected email new@example.com, got %s", updated.Email)
	}
	if updated.Verified {
		t.Fatal("expected email change to reset verified flag")
	}
	if len(mailer.codes) != 2 {
		t.Fatalf("expected a fresh verification code, got %d codes", len(mailer.codes))
	}
}

func TestEditProfilePasswordOnlyKeepsVerification(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mailer := &recordingMailer{}
	svc, _ := newTestService(store, mailer)

	user, err := svc.CreateAccount(ctx, "keep@example.com", "pw", domain.RoleClient)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := svc.VerifyEmail(ctx, mailer.codes[0]); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	updated, err := svc.EditProfile(ctx, user, "", "new-password")
	if err != nil {
		t.Fatalf("EditProfile failed: %v", err)
	}
	if !updated.Verified {
		t.Fatal("expected password change to keep verified flag")
	}
	if _, err := svc.Login(ctx, "keep@example.com", "new-password"); err != nil {
		t.Fatalf("expected login with new password to work, got %v", err)
	}
}

func TestEditProfileRejectsTakenEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore(), &recordingMailer{})

	if _, err := svc.CreateAccount(ctx, "a@example.com", "pw", domain.RoleClient); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	b, err := svc.CreateAccount(ctx, "b@example.com", "pw", domain.RoleClient)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if _, err := svc.EditProfile(ctx, b, "a@example.com", ""); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mailer := &recordingMailer{}
	svc, _ := newTestService(store, mailer)

	user, err := svc.CreateAccount(ctx, "verify@example.com", "pw", domain.RoleClient)
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	if err := svc.VerifyEmail(ctx, "bogus"); err != ErrUnknownCode {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}

	code := mailer.codes[0]
	if err := svc.VerifyEmail(ctx, code); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	fetched, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if !fetched.Verified {
		t.Fatal("expected user to be verified")
	}

	// The code is single use.
	if err := svc.VerifyEmail(ctx, code); err != ErrUnknownCode {
		t.Fatalf("expected ErrUnknownCode on reuse, got %v", err)
	}
}
