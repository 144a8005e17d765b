package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

// PromotionDuration is how long one payment keeps a restaurant promoted.
const PromotionDuration = 7 * 24 * time.Hour

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrNotOwner           = errors.New("you don't own that restaurant")
)

type Store interface {
	Create(ctx context.Context, payment *Payment) error
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
}

// Promoter is the restaurant-side surface payments need: ownership lookup
// and the promotion flag. Implemented by the restaurants repository.
type Promoter interface {
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	Promote(ctx context.Context, id string, until time.Time) error
	ClearExpiredPromotions(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store    Store
	promoter Promoter
	logger   *slog.Logger
}

func NewService(store Store, promoter Promoter, logger *slog.Logger) *Service {
	return &Service{store: store, promoter: promoter, logger: logger}
}

// CreatePayment records the transaction and promotes the owner's restaurant
// for the promotion window.
func (s *Service) CreatePayment(ctx context.Context, owner *domain.User, transactionID, restaurantID string) (*Payment, error) {
	restaurant, err := s.promoter.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("fetch restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}
	if restaurant.OwnerID != owner.ID {
		return nil, ErrNotOwner
	}

	payment := &Payment{
		TransactionID: transactionID,
		UserID:        owner.ID,
		RestaurantID:  restaurantID,
	}
	if err := s.store.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	until := time.Now().UTC().Add(PromotionDuration)
	if err := s.promoter.Promote(ctx, restaurantID, until); err != nil {
		return nil, fmt.Errorf("promote restaurant: %w", err)
	}

	s.logger.Info("restaurant promoted", "restaurant_id", restaurantID, "until", until, "payment_id", payment.ID)
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context, viewer *domain.User) ([]Payment, error) {
	return s.store.ListByUser(ctx, viewer.ID)
}

// RunPromotionSweeper periodically clears expired promotions until the
// context is done.
func (s *Service) RunPromotionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleared, err := s.promoter.ClearExpiredPromotions(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Error("failed to clear expired promotions", "error", err)
				continue
			}
			if cleared > 0 {
				s.logger.Info("expired promotions cleared", "count", cleared)
			}
		}
	}
}
