package payments

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Payment records an owner paying to promote a restaurant.
type Payment struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	RestaurantID  string    `json:"restaurant_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, payment *Payment) error {
	payment.ID = uuid.New().String()
	payment.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, transaction_id, user_id, restaurant_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, payment.ID, payment.TransactionID, payment.UserID, payment.RestaurantID, payment.CreatedAt)
	return err
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, restaurant_id, created_at
		FROM payments WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.UserID, &p.RestaurantID, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
