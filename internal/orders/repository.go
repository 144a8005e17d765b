package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	o.id, o.customer_id, o.driver_id, o.restaurant_id, r.owner_id,
	o.status, o.total, o.created_at, o.updated_at
`

// Create persists the order and its items in a single transaction so a
// partial failure never leaves orphaned item rows.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, driver_id, restaurant_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, order.ID, order.CustomerID, order.DriverID, order.RestaurantID, order.Status, order.Total, order.CreatedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New().String()
		options, err := json.Marshal(item.Options)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, dish_id, options)
			VALUES ($1, $2, $3, $4)
		`, item.ID, order.ID, item.DishID, options)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID loads an order together with its restaurant's owner id and its
// items. Returns nil when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.id = $1
	`, id).Scan(
		&order.ID, &order.CustomerID, &order.DriverID, &order.RestaurantID, &order.OwnerID,
		&order.Status, &order.Total, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dish_id, options
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		var options []byte
		if err := rows.Scan(&item.ID, &item.DishID, &options); err != nil {
			return err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &item.Options); err != nil {
				return err
			}
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

// ListByCustomer returns the orders placed by the given customer, newest
// first, optionally narrowed by status.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, "o.customer_id = $1", customerID, status)
}

// ListByDriver returns the orders assigned to the given driver.
func (r *OrderRepository) ListByDriver(ctx context.Context, driverID string, status *domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, "o.driver_id = $1", driverID, status)
}

// ListByOwner returns the union of orders across every restaurant the user
// owns. Scoping happens in the query, not by post-filtering.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, status *domain.OrderStatus) ([]domain.Order, error) {
	return r.list(ctx, "r.owner_id = $1", ownerID, status)
}

func (r *OrderRepository) list(ctx context.Context, where, arg string, status *domain.OrderStatus) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE ` + where
	args := []any{arg}
	if status != nil {
		query += " AND o.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY o.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.CustomerID, &order.DriverID, &order.RestaurantID, &order.OwnerID,
			&order.Status, &order.Total, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// UpdateStatus sets the order's status. Returns the reloaded order, or nil
// when the order does not exist.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// AssignDriver claims the order for the driver with a single conditional
// update, so two concurrent claims can never both succeed.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID, driverID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET driver_id = $1, updated_at = NOW()
		WHERE id = $2 AND driver_id IS NULL
	`, driverID, orderID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}
