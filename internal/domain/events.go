package domain

import "time"

// Broker topics for live order-lifecycle notifications.
const (
	TopicPendingOrder = "order.pending"
	TopicCookedOrder  = "order.cooked"
	TopicOrderUpdates = "order.updates"
)

// Kafka topics for the durable event feed consumed by the notifier worker.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusUpdated = "order.status_updated"
)

// OrderEvent is published on the in-process/redis broker for every order
// lifecycle change. Key fields are carried alongside the snapshot so
// subscribers can filter without extra lookups.
type OrderEvent struct {
	OrderID    string      `json:"order_id"`
	OwnerID    string      `json:"owner_id"`
	CustomerID *string     `json:"customer_id,omitempty"`
	DriverID   *string     `json:"driver_id,omitempty"`
	Status     OrderStatus `json:"status"`
	Order      *Order      `json:"order,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type OrderCreatedEvent struct {
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	OwnerID      string    `json:"owner_id"`
	CustomerID   string    `json:"customer_id"`
	Total        float64   `json:"total"`
	Timestamp    time.Time `json:"timestamp"`
}

type OrderStatusUpdatedEvent struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
