package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

var (
	ErrEmailTaken       = errors.New("there is a user with that email already")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUnknownCode      = errors.New("verification not found")
)

// Store is the persistence surface the service needs; implemented by
// Repository, faked in tests.
type Store interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	CreateVerification(ctx context.Context, userID string) (*domain.Verification, error)
	GetVerificationByCode(ctx context.Context, code string) (*domain.Verification, error)
	DeleteVerification(ctx context.Context, id string) error
}

// Mailer sends account mail. May be a no-op in tests and dev setups.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, code string) error
}

type Service struct {
	store  Store
	tokens *auth.TokenManager
	mailer Mailer
	logger *slog.Logger
}

func NewService(store Store, tokens *auth.TokenManager, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, mailer: mailer, logger: logger}
}

// GetByID satisfies auth.UserLoader so the service can back the auth
// middleware directly.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) CreateAccount(ctx context.Context, email, password string, role domain.UserRole) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	existing, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.sendVerification(ctx, user)
	s.logger.Info("account created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User) {
	verification, err := s.store.CreateVerification(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to create verification", "error", err, "user_id", user.ID)
		return
	}
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, verification.Code); err != nil {
		s.logger.Error("failed to send verification email", "error", err, "user_id", user.ID)
	}
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup email: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrWrongCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *Service) Profile(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EditProfile updates the viewer's email and/or password. Changing the email
// resets the verified flag and sends a fresh verification code.
func (s *Service) EditProfile(ctx context.Context, viewer *domain.User, email, password string) (*domain.User, error) {
	user, err := s.store.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	emailChanged := email != "" && email != user.Email
	if emailChanged {
		existing, err := s.store.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = email
		user.Verified = false
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.store.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if emailChanged {
		s.sendVerification(ctx, user)
	}
	return user, nil
}

// VerifyEmail marks the code's user as verified and consumes the code.
func (s *Service) VerifyEmail(ctx context.Context, code string) error {
	verification, err := s.store.GetVerificationByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("lookup code: %w", err)
	}
	if verification == nil {
		return ErrUnknownCode
	}

	user, err := s.store.GetByID(ctx, verification.UserID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	user.Verified = true
	if err := s.store.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := s.store.DeleteVerification(ctx, verification.ID); err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}

	s.logger.Info("email verified", "user_id", user.ID)
	return nil
}
