package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

// RedisBroker routes events through redis pub/sub so that subscribers on any
// API instance see publishes from every other instance.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBroker(addr string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (<-chan domain.OrderEvent, func()) {
	sub := b.client.Subscribe(ctx, topic)
	out := make(chan domain.OrderEvent, subscriberBuffer)

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var event domain.OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					// Malformed event: drop it for this subscriber.
					b.logger.Error("failed to decode broker event", "error", err, "topic", topic)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				}
			}
		}
	}()

	return out, cancel
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
