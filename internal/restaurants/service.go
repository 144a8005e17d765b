package restaurants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

// PageSize is the number of restaurants returned per listing page.
const PageSize = 25

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrDishNotFound       = errors.New("dish not found")
	ErrNotOwner           = errors.New("you don't own that restaurant")
)

// Store is the persistence surface the service needs; implemented by
// Repository, faked in tests.
type Store interface {
	CreateRestaurant(ctx context.Context, restaurant *domain.Restaurant) error
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	UpdateRestaurant(ctx context.Context, restaurant *domain.Restaurant) error
	DeleteRestaurant(ctx context.Context, id string) error
	ListRestaurants(ctx context.Context, offset, limit int) ([]domain.Restaurant, int, error)
	SearchRestaurants(ctx context.Context, query string, offset, limit int) ([]domain.Restaurant, int, error)
	ListByCategory(ctx context.Context, categoryID string, offset, limit int) ([]domain.Restaurant, int, error)
	GetOrCreateCategory(ctx context.Context, name, slug string) (*domain.Category, error)
	AllCategories(ctx context.Context) ([]domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CountRestaurantsByCategory(ctx context.Context, categoryID string) (int, error)
	CreateDish(ctx context.Context, dish *domain.Dish) error
	GetDish(ctx context.Context, id string) (*domain.Dish, error)
	ListDishes(ctx context.Context, restaurantID string) ([]domain.Dish, error)
	UpdateDish(ctx context.Context, dish *domain.Dish) error
	DeleteDish(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Slugify normalizes a category name into its slug: trimmed, lower-cased,
// spaces replaced with dashes.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

type RestaurantInput struct {
	Name         string `json:"name"`
	CoverImg     string `json:"cover_img"`
	Address      string `json:"address"`
	CategoryName string `json:"category_name"`
}

func (s *Service) CreateRestaurant(ctx context.Context, owner *domain.User, input RestaurantInput) (*domain.Restaurant, error) {
	restaurant := &domain.Restaurant{
		Name:     input.Name,
		CoverImg: input.CoverImg,
		Address:  input.Address,
		OwnerID:  owner.ID,
	}
	if input.CategoryName != "" {
		category, err := s.store.GetOrCreateCategory(ctx, strings.TrimSpace(input.CategoryName), Slugify(input.CategoryName))
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		restaurant.CategoryID = &category.ID
	}
	if err := s.store.CreateRestaurant(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	s.logger.Info("restaurant created", "restaurant_id", restaurant.ID, "owner_id", owner.ID)
	return restaurant, nil
}

// ownedRestaurant loads the restaurant and verifies the viewer owns it.
func (s *Service) ownedRestaurant(ctx context.Context, owner *domain.User, id string) (*domain.Restaurant, error) {
	restaurant, err := s.store.GetRestaurant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	if restaurant.OwnerID != owner.ID {
		return nil, ErrNotOwner
	}
	return restaurant, nil
}

func (s *Service) EditRestaurant(ctx context.Context, owner *domain.User, id string, input RestaurantInput) (*domain.Restaurant, error) {
	restaurant, err := s.ownedRestaurant(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		restaurant.Name = input.Name
	}
	if input.CoverImg != "" {
		restaurant.CoverImg = input.CoverImg
	}
	if input.Address != "" {
		restaurant.Address = input.Address
	}
	if input.CategoryName != "" {
		category, err := s.store.GetOrCreateCategory(ctx, strings.TrimSpace(input.CategoryName), Slugify(input.CategoryName))
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		restaurant.CategoryID = &category.ID
	}

	if err := s.store.UpdateRestaurant(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("update restaurant: %w", err)
	}
	return restaurant, nil
}

func (s *Service) DeleteRestaurant(ctx context.Context, owner *domain.User, id string) error {
	if _, err := s.ownedRestaurant(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.DeleteRestaurant(ctx, id); err != nil {
		return fmt.Errorf("delete restaurant: %w", err)
	}
	s.logger.Info("restaurant deleted", "restaurant_id", id, "owner_id", owner.ID)
	return nil
}

// Page bundles one page of restaurants with pagination metadata.
type Page struct {
	Restaurants []domain.Restaurant `json:"restaurants"`
	Page        int                 `json:"page"`
	TotalPages  int                 `json:"total_pages"`
	TotalItems  int                 `json:"total_items"`
}

func newPage(restaurants []domain.Restaurant, page, total int) *Page {
	return &Page{
		Restaurants: restaurants,
		Page:        page,
		TotalPages:  (total + PageSize - 1) / PageSize,
		TotalItems:  total,
	}
}

func (s *Service) AllRestaurants(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	restaurants, total, err := s.store.ListRestaurants(ctx, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return newPage(restaurants, page, total), nil
}

func (s *Service) FindRestaurant(ctx context.Context, id string) (*domain.Restaurant, []domain.Dish, error) {
	restaurant, err := s.store.GetRestaurant(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, nil, ErrRestaurantNotFound
	}
	menu, err := s.store.ListDishes(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch menu: %w", err)
	}
	return restaurant, menu, nil
}

func (s *Service) SearchRestaurants(ctx context.Context, query string, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	restaurants, total, err := s.store.SearchRestaurants(ctx, query, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	return newPage(restaurants, page, total), nil
}

// CategoryCount pairs a category with how many restaurants it holds.
type CategoryCount struct {
	domain.Category
	RestaurantCount int `json:"restaurant_count"`
}

func (s *Service) AllCategories(ctx context.Context) ([]CategoryCount, error) {
	categories, err := s.store.AllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]CategoryCount, 0, len(categories))
	for _, category := range categories {
		count, err := s.store.CountRestaurantsByCategory(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("count restaurants: %w", err)
		}
		out = append(out, CategoryCount{Category: category, RestaurantCount: count})
	}
	return out, nil
}

func (s *Service) FindCategory(ctx context.Context, slug string, page int) (*domain.Category, *Page, error) {
	category, err := s.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch category: %w", err)
	}
	if category == nil {
		return nil, nil, ErrCategoryNotFound
	}
	if page < 1 {
		page = 1
	}
	restaurants, total, err := s.store.ListByCategory(ctx, category.ID, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("list category restaurants: %w", err)
	}
	return category, newPage(restaurants, page, total), nil
}

type DishInput struct {
	RestaurantID string              `json:"restaurant_id"`
	Name         string              `json:"name"`
	Price        float64             `json:"price"`
	Photo        string              `json:"photo"`
	Description  string              `json:"description"`
	Options      []domain.DishOption `json:"options,omitempty"`
}

func (s *Service) CreateDish(ctx context.Context, owner *domain.User, input DishInput) (*domain.Dish, error) {
	if _, err := s.ownedRestaurant(ctx, owner, input.RestaurantID); err != nil {
		return nil, err
	}
	dish := &domain.Dish{
		RestaurantID: input.RestaurantID,
		Name:         input.Name,
		Price:        input.Price,
		Photo:        input.Photo,
		Description:  input.Description,
		Options:      input.Options,
	}
	if err := s.store.CreateDish(ctx, dish); err != nil {
		return nil, fmt.Errorf("create dish: %w", err)
	}
	return dish, nil
}

// ownedDish loads a dish and verifies the viewer owns its restaurant.
func (s *Service) ownedDish(ctx context.Context, owner *domain.User, id string) (*domain.Dish, error) {
	dish, err := s.store.GetDish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch dish: %w", err)
	}
	if dish == nil {
		return nil, ErrDishNotFound
	}
	if _, err := s.ownedRestaurant(ctx, owner, dish.RestaurantID); err != nil {
		return nil, err
	}
	return dish, nil
}

func (s *Service) EditDish(ctx context.Context, owner *domain.User, id string, input DishInput) (*domain.Dish, error) {
	dish, err := s.ownedDish(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		dish.Name = input.Name
	}
	if input.Price > 0 {
		dish.Price = input.Price
	}
	if input.Photo != "" {
		dish.Photo = input.Photo
	}
	if input.Description != "" {
		dish.Description = input.Description
	}
	if input.Options != nil {
		dish.Options = input.Options
	}

	if err := s.store.UpdateDish(ctx, dish); err != nil {
		return nil, fmt.Errorf("update dish: %w", err)
	}
	return dish, nil
}

func (s *Service) DeleteDish(ctx context.Context, owner *domain.User, id string) error {
	if _, err := s.ownedDish(ctx, owner, id); err != nil {
		return err
	}
	if err := s.store.DeleteDish(ctx, id); err != nil {
		return fmt.Errorf("delete dish: %w", err)
	}
	return nil
}
