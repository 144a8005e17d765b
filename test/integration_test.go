//go:build integration

package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/mail"
	"github.com/Crhis35/nuber-eats-backend/internal/messaging"
	"github.com/Crhis35/nuber-eats-backend/internal/notifier"
	"github.com/Crhis35/nuber-eats-backend/internal/notify"
	"github.com/Crhis35/nuber-eats-backend/internal/orders"
	"github.com/Crhis35/nuber-eats-backend/internal/payments"
	"github.com/Crhis35/nuber-eats-backend/internal/restaurants"
	"github.com/Crhis35/nuber-eats-backend/internal/users"
)

type fixture struct {
	users       *users.Service
	restaurants *restaurants.Service
	orders      *orders.Service
	payments    *payments.Service
	broker      *notify.MemoryBroker
	userRepo    *users.Repository
	orderRepo   *orders.OrderRepository
}

func newFixture(t *testing.T, connStr string) *fixture {
	t.Helper()

	db := OpenDB(t, connStr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenManager("integration-secret", time.Hour)

	broker := notify.NewMemoryBroker()
	t.Cleanup(broker.Close)

	userRepo := users.NewRepository(db)
	restaurantRepo := restaurants.NewRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewRepository(db)

	return &fixture{
		users:       users.NewService(userRepo, tokens, mail.NopSender{}, logger),
		restaurants: restaurants.NewService(restaurantRepo, logger),
		orders:      orders.NewService(orderRepo, restaurantRepo, broker, nil, logger),
		payments:    payments.NewService(paymentRepo, restaurantRepo, logger),
		broker:      broker,
		userRepo:    userRepo,
		orderRepo:   orderRepo,
	}
}

func (f *fixture) account(t *testing.T, ctx context.Context, email string, role domain.UserRole) *domain.User {
	t.Helper()
	user, err := f.users.CreateAccount(ctx, email, "sup3r-secret", role)
	if err != nil {
		t.Fatalf("failed to create %s account: %v", role, err)
	}
	return user
}

func (f *fixture) seedRestaurant(t *testing.T, ctx context.Context, owner *domain.User) (*domain.Restaurant, *domain.Dish) {
	t.Helper()

	restaurant, err := f.restaurants.CreateRestaurant(ctx, owner, restaurants.RestaurantInput{
		Name:         "Seoul Bowl",
		Address:      "123 Main St",
		CategoryName: "Korean Food",
	})
	if err != nil {
		t.Fatalf("failed to create restaurant: %v", err)
	}

	dish, err := f.restaurants.CreateDish(ctx, owner, restaurants.DishInput{
		RestaurantID: restaurant.ID,
		Name:         "Bibimbap",
		Price:        12,
		Options: []domain.DishOption{
			{Name: "Extra Rice", Extra: ptr(2.0)},
		},
	})
	if err != nil {
		t.Fatalf("failed to create dish: %v", err)
	}

	return restaurant, dish
}

func ptr[T any](v T) *T { return &v }

func TestOrderLifecycleFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	f := newFixture(t, pg.ConnStr)

	owner := f.account(t, ctx, "owner@example.com", domain.RoleOwner)
	client := f.account(t, ctx, "client@example.com", domain.RoleClient)
	driver := f.account(t, ctx, "driver@example.com", domain.RoleDelivery)
	restaurant, dish := f.seedRestaurant(t, ctx, owner)

	order, err := f.orders.Create(ctx, client, restaurant.ID, []orders.CreateItem{
		{DishID: dish.ID, Options: []domain.OrderItemOption{{Name: "Extra Rice"}}},
		{DishID: dish.ID},
	})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusPending, order.Status)
	}
	if order.Total != 26 {
		t.Fatalf("expected total 26, got %v", order.Total)
	}
	if order.OwnerID != owner.ID {
		t.Fatalf("expected owner %s on order, got %s", owner.ID, order.OwnerID)
	}

	for _, status := range []domain.OrderStatus{domain.OrderStatusCooking, domain.OrderStatusCooked} {
		if _, err := f.orders.Edit(ctx, owner, order.ID, status); err != nil {
			t.Fatalf("owner failed to set status %s: %v", status, err)
		}
	}

	taken, err := f.orders.Take(ctx, driver, order.ID)
	if err != nil {
		t.Fatalf("driver failed to take order: %v", err)
	}
	if taken.DriverID == nil || *taken.DriverID != driver.ID {
		t.Fatalf("expected driver %s on order, got %v", driver.ID, taken.DriverID)
	}

	for _, status := range []domain.OrderStatus{domain.OrderStatusPickedUp, domain.OrderStatusDelivered} {
		if _, err := f.orders.Edit(ctx, driver, order.ID, status); err != nil {
			t.Fatalf("driver failed to set status %s: %v", status, err)
		}
	}

	final, err := f.orders.GetOne(ctx, client, order.ID)
	if err != nil {
		t.Fatalf("customer failed to fetch own order: %v", err)
	}
	if final.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusDelivered, final.Status)
	}

	stranger := f.account(t, ctx, "stranger@example.com", domain.RoleClient)
	if _, err := f.orders.GetOne(ctx, stranger, order.ID); err != orders.ErrCannotSee {
		t.Fatalf("expected ErrCannotSee for unrelated client, got %v", err)
	}
}

func TestTakeOrderSingleWinner(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	f := newFixture(t, pg.ConnStr)

	owner := f.account(t, ctx, "owner@example.com", domain.RoleOwner)
	client := f.account(t, ctx, "client@example.com", domain.RoleClient)
	restaurant, dish := f.seedRestaurant(t, ctx, owner)

	order, err := f.orders.Create(ctx, client, restaurant.ID, []orders.CreateItem{{DishID: dish.ID}})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	const drivers = 8
	results := make(chan error, drivers)
	var wg sync.WaitGroup
	for i := 0; i < drivers; i++ {
		driver := f.account(t, ctx, fmt.Sprintf("driver-%d@example.com", i), domain.RoleDelivery)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Take(ctx, driver, order.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch err {
		case nil:
			wins++
		case orders.ErrAlreadyTaken:
			conflicts++
		default:
			t.Fatalf("unexpected take error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("expected exactly 1 winning driver, got %d", wins)
	}
	if conflicts != drivers-1 {
		t.Fatalf("expected %d conflicts, got %d", drivers-1, conflicts)
	}
}

func TestRestaurantPaginationAndPromotion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	f := newFixture(t, pg.ConnStr)

	owner := f.account(t, ctx, "owner@example.com", domain.RoleOwner)

	var last *domain.Restaurant
	for i := 0; i < restaurants.PageSize+3; i++ {
		r, err := f.restaurants.CreateRestaurant(ctx, owner, restaurants.RestaurantInput{
			Name:         fmt.Sprintf("Place %02d", i),
			CategoryName: "Fast Food",
		})
		if err != nil {
			t.Fatalf("failed to create restaurant %d: %v", i, err)
		}
		last = r
	}

	page1, err := f.restaurants.AllRestaurants(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list page 1: %v", err)
	}
	if len(page1.Restaurants) != restaurants.PageSize {
		t.Fatalf("expected %d results on page 1, got %d", restaurants.PageSize, len(page1.Restaurants))
	}
	if page1.TotalPages != 2 {
		t.Fatalf("expected 2 total pages, got %d", page1.TotalPages)
	}

	page2, err := f.restaurants.AllRestaurants(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list page 2: %v", err)
	}
	if len(page2.Restaurants) != 3 {
		t.Fatalf("expected 3 results on page 2, got %d", len(page2.Restaurants))
	}

	// Paying promotes the restaurant to the front of listings.
	if _, err := f.payments.CreatePayment(ctx, owner, "txn-1", last.ID); err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	page1, err = f.restaurants.AllRestaurants(ctx, 1)
	if err != nil {
		t.Fatalf("failed to list after promotion: %v", err)
	}
	first := page1.Restaurants[0]
	if first.ID != last.ID {
		t.Fatalf("expected promoted restaurant %s first, got %s", last.ID, first.ID)
	}
	if !first.IsPromoted {
		t.Fatal("expected first restaurant to be promoted")
	}
}

func TestAccountFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	f := newFixture(t, pg.ConnStr)

	user := f.account(t, ctx, "new@example.com", domain.RoleClient)
	if user.Verified {
		t.Fatal("expected new account to start unverified")
	}

	if _, err := f.users.CreateAccount(ctx, "new@example.com", "other", domain.RoleClient); err != users.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	token, err := f.users.Login(ctx, "new@example.com", "sup3r-secret")
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	if _, err := f.users.Login(ctx, "new@example.com", "wrong"); err != users.ErrWrongCredentials {
		t.Fatalf("expected ErrWrongCredentials, got %v", err)
	}
}

type mailCapture struct {
	mu   sync.Mutex
	sent []string
}

func (m *mailCapture) SendVerificationEmail(context.Context, string, string) error { return nil }

func (m *mailCapture) SendOrderNotification(_ context.Context, email, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email+":"+orderID)
	return nil
}

func (m *mailCapture) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func TestNotifierConsumesOrderEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	f := newFixture(t, pg.ConnStr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	owner := f.account(t, ctx, "owner@example.com", domain.RoleOwner)
	client := f.account(t, ctx, "client@example.com", domain.RoleClient)
	restaurant, dish := f.seedRestaurant(t, ctx, owner)

	db := OpenDB(t, pg.ConnStr)
	producer := messaging.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	orderRepo := orders.NewOrderRepository(db)
	restaurantRepo := restaurants.NewRepository(db)
	svc := orders.NewService(orderRepo, restaurantRepo, f.broker, producer, logger)

	order, err := svc.Create(ctx, client, restaurant.ID, []orders.CreateItem{{DishID: dish.ID}})
	if err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	capture := &mailCapture{}
	handler := notifier.NewHandler(users.NewRepository(db), capture, logger)

	consumer := messaging.NewConsumer(brokers, domain.TopicOrderCreated, "test-notifier")
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Consume(consumeCtx, func(ctx context.Context, payload []byte) error {
			err := handler.HandleOrderCreated(ctx, payload)
			stopConsume()
			return err
		})
	}()

	select {
	case <-done:
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for order event")
	}

	sent := capture.all()
	if len(sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sent))
	}
	want := owner.Email + ":" + order.ID
	if sent[0] != want {
		t.Fatalf("expected notification %q, got %q", want, sent[0])
	}
}
