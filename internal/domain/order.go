package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCooking   OrderStatus = "Cooking"
	OrderStatusCooked    OrderStatus = "Cooked"
	OrderStatusPickedUp  OrderStatus = "PickedUp"
	OrderStatusDelivered OrderStatus = "Delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCooking, OrderStatusCooked,
		OrderStatusPickedUp, OrderStatusDelivered:
		return true
	}
	return false
}

// OrderItemOption is the customer's selection against a dish option:
// the option name plus, for choice-based options, the chosen variant.
type OrderItemOption struct {
	Name   string `json:"name"`
	Choice string `json:"choice,omitempty"`
}

// OrderItem is one line of an order. Items are created fresh per order and
// never shared between orders.
type OrderItem struct {
	ID      string            `json:"id"`
	DishID  string            `json:"dish_id"`
	Options []OrderItemOption `json:"options,omitempty"`
}

type Order struct {
	ID           string  `json:"id"`
	CustomerID   *string `json:"customer_id,omitempty"`
	DriverID     *string `json:"driver_id,omitempty"`
	RestaurantID string  `json:"restaurant_id"`
	// OwnerID is the owning user of the order's restaurant, loaded alongside
	// the order so visibility checks need no second lookup.
	OwnerID   string      `json:"owner_id"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CanSee reports whether the viewer is the order's customer, its driver, or
// the owner of its restaurant.
func (o *Order) CanSee(viewer *User) bool {
	if o.CustomerID != nil && *o.CustomerID == viewer.ID {
		return true
	}
	if o.DriverID != nil && *o.DriverID == viewer.ID {
		return true
	}
	return o.OwnerID == viewer.ID
}

// editableStatuses maps a viewer role to the target statuses that role may
// set on a visible order. Roles absent from the table cannot edit at all.
var editableStatuses = map[UserRole][]OrderStatus{
	RoleOwner:    {OrderStatusCooking, OrderStatusCooked},
	RoleDelivery: {OrderStatusPickedUp, OrderStatusDelivered},
}

// CanEdit reports whether a viewer with the given role may move an order to
// the target status. The decision is a pure (role, status) lookup; it does
// not consider the order's current status.
func CanEdit(role UserRole, target OrderStatus) bool {
	for _, s := range editableStatuses[role] {
		if s == target {
			return true
		}
	}
	return false
}
