package restaurants

import (
	"context"
	"database/sql"
	"encoding/json"
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

const restaurantColumns = `
	id, name, cover_img, address, category_id, owner_id, is_promoted, promoted_until, created_at
`

func scanRestaurant(row interface{ Scan(...any) error }) (*domain.Restaurant, error) {
	r := &domain.Restaurant{}
	err := row.Scan(
		&r.ID, &r.Name, &r.CoverImg, &r.Address, &r.CategoryID, &r.OwnerID,
		&r.IsPromoted, &r.PromotedUntil, &r.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func (r *Repository) CreateRestaurant(ctx context.Context, restaurant *domain.Restaurant) error {
	restaurant.ID = uuid.New().String()
	restaurant.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO restaurants (id, name, cover_img, address, category_id, owner_id, is_promoted, promoted_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, NULL, $7)
	`, restaurant.ID, restaurant.Name, restaurant.CoverImg, restaurant.Address,
		restaurant.CategoryID, restaurant.OwnerID, restaurant.CreatedAt)
	return err
}

// GetRestaurant returns nil when no restaurant has the id.
func (r *Repository) GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+restaurantColumns+` FROM restaurants WHERE id = $1
	`, id)
	return scanRestaurant(row)
}

func (r *Repository) UpdateRestaurant(ctx context.Context, restaurant *domain.Restaurant) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE restaurants SET name = $1, cover_img = $2, address = $3, category_id = $4
		WHERE id = $5
	`, restaurant.Name, restaurant.CoverImg, restaurant.Address, restaurant.CategoryID, restaurant.ID)
	return err
}

func (r *Repository) DeleteRestaurant(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM restaurants WHERE id = $1`, id)
	return err
}

// ListRestaurants returns one page of restaurants, promoted ones first, plus
// the total count for pagination.
func (r *Repository) ListRestaurants(ctx context.Context, offset, limit int) ([]domain.Restaurant, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurants`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		ORDER BY is_promoted DESC, created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	restaurants, err := collectRestaurants(rows)
	if err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

func (r *Repository) SearchRestaurants(ctx context.Context, query string, offset, limit int) ([]domain.Restaurant, int, error) {
	pattern := "%" + query + "%"

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE name ILIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE name ILIKE $1
		ORDER BY is_promoted DESC, created_at DESC
		OFFSET $2 LIMIT $3
	`, pattern, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	restaurants, err := collectRestaurants(rows)
	if err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

func (r *Repository) ListByCategory(ctx context.Context, categoryID string, offset, limit int) ([]domain.Restaurant, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE category_id = $1`, categoryID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+restaurantColumns+`
		FROM restaurants
		WHERE category_id = $1
		ORDER BY is_promoted DESC, created_at DESC
		OFFSET $2 LIMIT $3
	`, categoryID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	restaurants, err := collectRestaurants(rows)
	if err != nil {
		return nil, 0, err
	}
	return restaurants, total, nil
}

func collectRestaurants(rows *sql.Rows) ([]domain.Restaurant, error) {
	restaurants := []domain.Restaurant{}
	for rows.Next() {
		var r domain.Restaurant
		if err := rows.Scan(
			&r.ID, &r.Name, &r.CoverImg, &r.Address, &r.CategoryID, &r.OwnerID,
			&r.IsPromoted, &r.PromotedUntil, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}

// GetOrCreateCategory finds the category by slug, creating it on first use.
func (r *Repository) GetOrCreateCategory(ctx context.Context, name, slug string) (*domain.Category, error) {
	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, cover_img FROM categories WHERE slug = $1
	`, slug).Scan(&category.ID, &category.Name, &category.Slug, &category.CoverImg)
	if err == nil {
		return category, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	category = &domain.Category{ID: uuid.New().String(), Name: name, Slug: slug}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, cover_img) VALUES ($1, $2, $3, '')
	`, category.ID, category.Name, category.Slug)
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (r *Repository) AllCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, slug, cover_img FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CoverImg); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	category := &domain.Category{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, slug, cover_img FROM categories WHERE slug = $1
	`, slug).Scan(&category.ID, &category.Name, &category.Slug, &category.CoverImg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return category, nil
}

func (r *Repository) CountRestaurantsByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE category_id = $1`, categoryID,
	).Scan(&count)
	return count, err
}

func (r *Repository) CreateDish(ctx context.Context, dish *domain.Dish) error {
	dish.ID = uuid.New().String()
	options, err := json.Marshal(dish.Options)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dishes (id, restaurant_id, name, price, photo, description, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, dish.ID, dish.RestaurantID, dish.Name, dish.Price, dish.Photo, dish.Description, options)
	return err
}

// GetDish returns nil when no dish has the id.
func (r *Repository) GetDish(ctx context.Context, id string) (*domain.Dish, error) {
	dish := &domain.Dish{}
	var options []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, name, price, photo, description, options
		FROM dishes WHERE id = $1
	`, id).Scan(&dish.ID, &dish.RestaurantID, &dish.Name, &dish.Price, &dish.Photo, &dish.Description, &options)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &dish.Options); err != nil {
			return nil, err
		}
	}
	return dish, nil
}

func (r *Repository) ListDishes(ctx context.Context, restaurantID string) ([]domain.Dish, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, price, photo, description, options
		FROM dishes WHERE restaurant_id = $1 ORDER BY name
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	dishes := []domain.Dish{}
	for rows.Next() {
		var dish domain.Dish
		var options []byte
		if err := rows.Scan(&dish.ID, &dish.RestaurantID, &dish.Name, &dish.Price, &dish.Photo, &dish.Description, &options); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &dish.Options); err != nil {
				return nil, err
			}
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}

func (r *Repository) UpdateDish(ctx context.Context, dish *domain.Dish) error {
	options, err := json.Marshal(dish.Options)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE dishes SET name = $1, price = $2, photo = $3, description = $4, options = $5
		WHERE id = $6
	`, dish.Name, dish.Price, dish.Photo, dish.Description, options, dish.ID)
	return err
}

func (r *Repository) DeleteDish(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dishes WHERE id = $1`, id)
	return err
}

// Promote marks the restaurant promoted until the given time.
func (r *Repository) Promote(ctx context.Context, id string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE restaurants SET is_promoted = true, promoted_until = $1 WHERE id = $2
	`, until, id)
	return err
}

// ClearExpiredPromotions un-promotes every restaurant whose promotion window
// has passed and returns how many were cleared.
func (r *Repository) ClearExpiredPromotions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE restaurants SET is_promoted = false, promoted_until = NULL
		WHERE is_promoted = true AND promoted_until < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
