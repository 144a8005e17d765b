package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/notify"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrDishNotFound       = errors.New("dish not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCannotSee          = errors.New("you can't see that")
	ErrCannotEdit         = errors.New("you can't edit that")
	ErrAlreadyTaken       = errors.New("order already taken")
	ErrInvalidStatus      = errors.New("invalid order status")
)

// Repository is the persistence surface the service needs. Implemented by
// OrderRepository; faked in tests.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, status *domain.OrderStatus) ([]domain.Order, error)
	ListByDriver(ctx context.Context, driverID string, status *domain.OrderStatus) ([]domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string, status *domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	AssignDriver(ctx context.Context, orderID, driverID string) (bool, error)
}

// Catalog is the read-only restaurant/dish lookup consulted during pricing.
// Lookups return nil (not an error) when the record is absent.
type Catalog interface {
	GetRestaurant(ctx context.Context, id string) (*domain.Restaurant, error)
	GetDish(ctx context.Context, id string) (*domain.Dish, error)
}

// EventFeed is the durable outbound event stream (kafka). May be nil when
// the feed is not configured.
type EventFeed interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	repo    Repository
	catalog Catalog
	broker  notify.Broker
	feed    EventFeed
	logger  *slog.Logger
}

func NewService(repo Repository, catalog Catalog, broker notify.Broker, feed EventFeed, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		broker:  broker,
		feed:    feed,
		logger:  logger,
	}
}

// CreateItem is one requested line of a new order.
type CreateItem struct {
	DishID  string                   `json:"dish_id"`
	Options []domain.OrderItemOption `json:"options,omitempty"`
}

// Create prices the requested items against the catalog, persists the order
// with status Pending, and announces it to the restaurant's owner.
func (s *Service) Create(ctx context.Context, customer *domain.User, restaurantID string, items []CreateItem) (*domain.Order, error) {
	restaurant, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("lookup restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, ErrRestaurantNotFound
	}

	var total float64
	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		dish, err := s.catalog.GetDish(ctx, item.DishID)
		if err != nil {
			return nil, fmt.Errorf("lookup dish: %w", err)
		}
		if dish == nil {
			return nil, ErrDishNotFound
		}
		total += itemPrice(dish, item.Options)
		orderItems = append(orderItems, domain.OrderItem{
			DishID:  dish.ID,
			Options: item.Options,
		})
	}

	customerID := customer.ID
	order := &domain.Order{
		CustomerID:   &customerID,
		RestaurantID: restaurant.ID,
		OwnerID:      restaurant.OwnerID,
		Items:        orderItems,
		Total:        total,
		Status:       domain.OrderStatusPending,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.publish(ctx, domain.TopicPendingOrder, order)
	if s.feed != nil {
		event := domain.OrderCreatedEvent{
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			OwnerID:      order.OwnerID,
			CustomerID:   customerID,
			Total:        order.Total,
			Timestamp:    order.CreatedAt,
		}
		if err := s.feed.Publish(ctx, domain.TopicOrderCreated, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	s.logger.Info("order created", "order_id", order.ID, "customer_id", customerID, "total", order.Total)
	return order, nil
}

// itemPrice computes one item's price: the dish base price plus, per selected
// option, the option's flat surcharge if it has one, otherwise the selected
// choice's surcharge if any. Selections naming unknown options or choices
// contribute nothing.
func itemPrice(dish *domain.Dish, selections []domain.OrderItemOption) float64 {
	price := dish.Price
	for _, selection := range selections {
		option := dish.Option(selection.Name)
		if option == nil {
			continue
		}
		if option.Extra != nil {
			price += *option.Extra
			continue
		}
		if choice := option.Choice(selection.Choice); choice != nil && choice.Extra != nil {
			price += *choice.Extra
		}
	}
	return price
}

// GetMany returns the orders the viewer is entitled to: their own purchases
// for clients, their assigned rides for drivers, and every order across
// owned restaurants for owners.
func (s *Service) GetMany(ctx context.Context, viewer *domain.User, status *domain.OrderStatus) ([]domain.Order, error) {
	switch viewer.Role {
	case domain.RoleClient:
		return s.repo.ListByCustomer(ctx, viewer.ID, status)
	case domain.RoleDelivery:
		return s.repo.ListByDriver(ctx, viewer.ID, status)
	case domain.RoleOwner:
		return s.repo.ListByOwner(ctx, viewer.ID, status)
	}
	return nil, fmt.Errorf("unknown role %q", viewer.Role)
}

// GetOne fetches an order and applies the visibility rule. A viewer who is
// neither the customer, the driver, nor the restaurant owner is refused.
func (s *Service) GetOne(ctx context.Context, viewer *domain.User, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.CanSee(viewer) {
		return nil, ErrCannotSee
	}
	return order, nil
}

// Edit moves a visible order to the target status if the viewer's role
// allows that status. When the new status is Cooked an extra event is routed
// to the restaurant owner; every successful edit publishes an update event.
func (s *Service) Edit(ctx context.Context, viewer *domain.User, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	order, err := s.GetOne(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanEdit(viewer.Role, status) {
		return nil, ErrCannotEdit
	}

	updated, err := s.repo.UpdateStatus(ctx, order.ID, status)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if updated == nil {
		return nil, ErrOrderNotFound
	}

	if status == domain.OrderStatusCooked {
		s.publish(ctx, domain.TopicCookedOrder, updated)
	}
	s.publish(ctx, domain.TopicOrderUpdates, updated)

	if s.feed != nil {
		event := domain.OrderStatusUpdatedEvent{
			OrderID:   updated.ID,
			Status:    updated.Status,
			Timestamp: updated.UpdatedAt,
		}
		if err := s.feed.Publish(ctx, domain.TopicOrderStatusUpdated, updated.ID, event); err != nil {
			s.logger.Error("failed to publish order status event", "error", err, "order_id", updated.ID)
		}
	}

	s.logger.Info("order status updated", "order_id", updated.ID, "status", updated.Status, "by", viewer.ID)
	return updated, nil
}

// Take claims an unassigned order for the driver. The claim is a single
// conditional update, so under concurrent attempts at most one driver wins.
func (s *Service) Take(ctx context.Context, driver *domain.User, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.DriverID != nil {
		return nil, ErrAlreadyTaken
	}

	claimed, err := s.repo.AssignDriver(ctx, order.ID, driver.ID)
	if err != nil {
		return nil, fmt.Errorf("assign driver: %w", err)
	}
	if !claimed {
		// Another driver won the race between our read and the update.
		return nil, ErrAlreadyTaken
	}

	taken, err := s.repo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	s.publish(ctx, domain.TopicOrderUpdates, taken)
	s.logger.Info("order taken", "order_id", order.ID, "driver_id", driver.ID)
	return taken, nil
}

// publish sends an event on the live broker. Delivery is fire-and-forget:
// failures are logged and never surfaced to the caller.
func (s *Service) publish(ctx context.Context, topic string, order *domain.Order) {
	if s.broker == nil || order == nil {
		return
	}
	event := domain.OrderEvent{
		OrderID:    order.ID,
		OwnerID:    order.OwnerID,
		CustomerID: order.CustomerID,
		DriverID:   order.DriverID,
		Status:     order.Status,
		Order:      order,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.broker.Publish(ctx, topic, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "topic", topic, "order_id", order.ID)
	}
}
