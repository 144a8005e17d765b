package notify

import (
	"context"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

// Broker delivers order-lifecycle events to live subscribers. Publish is
// fire-and-forget from the caller's point of view: a subscriber that is slow,
// gone, or failing never affects the publisher or other subscribers.
//
// Subscribe returns a receive channel and a cancel func. The channel is
// closed when the subscription ends, either via cancel or when the broker
// shuts down. Cancel is safe to call more than once.
type Broker interface {
	Publish(ctx context.Context, topic string, event domain.OrderEvent) error
	Subscribe(ctx context.Context, topic string) (<-chan domain.OrderEvent, func())
}
