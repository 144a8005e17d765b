package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.Verified, user.CreatedAt)
	return err
}

// GetByID returns nil when no user has the id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByEmail returns nil when no user has the email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *Repository) get(ctx context.Context, where, arg string) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, verified, created_at, updated_at
		FROM users `+where,
		arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.Verified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *Repository) Update(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = $1, password_hash = $2, verified = $3, updated_at = NOW()
		WHERE id = $4
	`, user.Email, user.PasswordHash, user.Verified, user.ID)
	return err
}

// CreateVerification replaces any pending verification for the user with a
// fresh code.
func (r *Repository) CreateVerification(ctx context.Context, userID string) (*domain.Verification, error) {
	verification := &domain.Verification{
		ID:     uuid.New().String(),
		Code:   uuid.New().String(),
		UserID: userID,
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM verifications WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO verifications (id, code, user_id) VALUES ($1, $2, $3)
	`, verification.ID, verification.Code, verification.UserID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return verification, nil
}

// GetVerificationByCode returns nil when the code is unknown.
func (r *Repository) GetVerificationByCode(ctx context.Context, code string) (*domain.Verification, error) {
	verification := &domain.Verification{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, user_id FROM verifications WHERE code = $1
	`, code).Scan(&verification.ID, &verification.Code, &verification.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return verification, nil
}

func (r *Repository) DeleteVerification(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	return err
}
