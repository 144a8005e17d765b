package payments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type fakeStore struct {
	payments []Payment
	nextID   int
}

func (f *fakeStore) Create(_ context.Context, payment *Payment) error {
	f.nextID++
	payment.ID = fmt.Sprintf("payment-%d", f.nextID)
	payment.CreatedAt = time.Now().UTC()
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]Payment, error) {
	var out []Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePromoter struct {
	mu          sync.Mutex
	restaurants map[string]*domain.Restaurant
	promoted    map[string]time.Time
	cleared     int64
}

func newFakePromoter() *fakePromoter {
	return &fakePromoter{
		restaurants: map[string]*domain.Restaurant{},
		promoted:    map[string]time.Time{},
	}
}

func (f *fakePromoter) GetRestaurant(_ context.Context, id string) (*domain.Restaurant, error) {
	restaurant, ok := f.restaurants[id]
	if !ok {
		return nil, nil
	}
	return restaurant, nil
}

func (f *fakePromoter) Promote(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoted[id] = until
	return nil
}

func (f *fakePromoter) ClearExpiredPromotions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var cleared int64
	for id, until := range f.promoted {
		if until.Before(now) {
			delete(f.promoted, id)
			cleared++
		}
	}
	f.cleared += cleared
	return cleared, nil
}

func (f *fakePromoter) clearedCount() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func (f *fakePromoter) isPromoted(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.promoted[id]
	return ok
}

func newTestService(store *fakeStore, promoter *fakePromoter) *Service {
	return NewService(store, promoter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreatePaymentPromotesRestaurant(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	promoter := newFakePromoter()
	promoter.restaurants["restaurant-1"] = &domain.Restaurant{ID: "restaurant-1", OwnerID: "owner-1"}
	svc := newTestService(store, promoter)

	owner := &domain.User{ID: "owner-1", Role: domain.RoleOwner}
	before := time.Now().UTC()

	payment, err := svc.CreatePayment(ctx, owner, "txn-1", "restaurant-1")
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if payment.ID == "" {
		t.Fatal("expected payment ID to be set")
	}
	if payment.UserID != "owner-1" || payment.RestaurantID != "restaurant-1" {
		t.Fatalf("unexpected payment record: %+v", payment)
	}

	until, ok := promoter.promoted["restaurant-1"]
	if !ok {
		t.Fatal("expected restaurant to be promoted")
	}
	want := before.Add(PromotionDuration)
	if until.Before(want.Add(-time.Minute)) || until.After(want.Add(time.Minute)) {
		t.Fatalf("expected promotion until about %v, got %v", want, until)
	}
}

func TestCreatePaymentRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	promoter := newFakePromoter()
	promoter.restaurants["restaurant-1"] = &domain.Restaurant{ID: "restaurant-1", OwnerID: "owner-1"}
	svc := newTestService(&fakeStore{}, promoter)

	intruder := &domain.User{ID: "owner-2", Role: domain.RoleOwner}
	if _, err := svc.CreatePayment(ctx, intruder, "txn-1", "restaurant-1"); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	owner := &domain.User{ID: "owner-1", Role: domain.RoleOwner}
	if _, err := svc.CreatePayment(ctx, owner, "txn-1", "missing"); err != ErrRestaurantNotFound {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestListPaymentsScopedToViewer(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	promoter := newFakePromoter()
	promoter.restaurants["restaurant-1"] = &domain.Restaurant{ID: "restaurant-1", OwnerID: "owner-1"}
	promoter.restaurants["restaurant-2"] = &domain.Restaurant{ID: "restaurant-2", OwnerID: "owner-2"}
	svc := newTestService(store, promoter)

	ownerA := &domain.User{ID: "owner-1", Role: domain.RoleOwner}
	ownerB := &domain.User{ID: "owner-2", Role: domain.RoleOwner}

	if _, err := svc.CreatePayment(ctx, ownerA, "txn-a", "restaurant-1"); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, ownerB, "txn-b", "restaurant-2"); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	payments, err := svc.ListPayments(ctx, ownerA)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 || payments[0].TransactionID != "txn-a" {
		t.Fatalf("expected only txn-a for owner-1, got %+v", payments)
	}
}

func TestPromotionSweeperClearsExpired(t *testing.T) {
	promoter := newFakePromoter()
	promoter.promoted["restaurant-1"] = time.Now().UTC().Add(-time.Hour)
	promoter.promoted["restaurant-2"] = time.Now().UTC().Add(time.Hour)
	svc := newTestService(&fakeStore{}, promoter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunPromotionSweeper(ctx, 10*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for promoter.clearedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for sweeper to clear promotions")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if promoter.isPromoted("restaurant-1") {
		t.Fatal("expected expired promotion to be cleared")
	}
	if !promoter.isPromoted("restaurant-2") {
		t.Fatal("expected active promotion to survive")
	}
}
