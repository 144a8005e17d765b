package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/mail"
)

// UserDirectory resolves the restaurant owner targeted by an event.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Handler consumes the durable order feed and mails restaurant owners about
// new orders.
type Handler struct {
	users  UserDirectory
	sender mail.Sender
	logger *slog.Logger
}

func NewHandler(users UserDirectory, sender mail.Sender, logger *slog.Logger) *Handler {
	return &Handler{users: users, sender: sender, logger: logger}
}

// HandleOrderCreated processes one order.created event.
func (h *Handler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "owner_id", event.OwnerID)

	owner, err := h.users.GetByID(ctx, event.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner %s: %w", event.OwnerID, err)
	}
	if owner == nil {
		// Owner deleted since the order was placed; nothing to notify.
		h.logger.Warn("owner not found for order event", "order_id", event.OrderID, "owner_id", event.OwnerID)
		return nil
	}

	if err := h.sender.SendOrderNotification(ctx, owner.Email, event.OrderID); err != nil {
		return fmt.Errorf("send order notification: %w", err)
	}

	h.logger.Info("order notification sent", "order_id", event.OrderID, "to", owner.Email)
	return nil
}
