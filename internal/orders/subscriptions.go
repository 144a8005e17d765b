package orders

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/notify"
)

// SubscriptionHandler streams live order events to clients over server-sent
// events. Each connection subscribes to one broker topic and applies a
// per-viewer filter; the stream ends when the client disconnects.
type SubscriptionHandler struct {
	broker notify.Broker
	logger *slog.Logger
}

func NewSubscriptionHandler(broker notify.Broker, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{broker: broker, logger: logger}
}

// HandlePendingOrders delivers new pending orders to the restaurant owner.
func (h *SubscriptionHandler) HandlePendingOrders(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())
	h.stream(w, r, domain.TopicPendingOrder, func(event domain.OrderEvent) bool {
		return event.OwnerID == viewer.ID
	})
}

// HandleCookedOrders delivers cooked orders to delivery drivers looking for
// work. Every driver sees every cooked order.
func (h *SubscriptionHandler) HandleCookedOrders(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, domain.TopicCookedOrder, func(domain.OrderEvent) bool {
		return true
	})
}

// HandleOrderUpdates delivers status changes for one order to viewers
// related to it: its customer, its driver, or the restaurant owner.
func (h *SubscriptionHandler) HandleOrderUpdates(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing order id", http.StatusBadRequest)
		return
	}

	h.stream(w, r, domain.TopicOrderUpdates, func(event domain.OrderEvent) bool {
		if event.OrderID != id {
			return false
		}
		if event.CustomerID != nil && *event.CustomerID == viewer.ID {
			return true
		}
		if event.DriverID != nil && *event.DriverID == viewer.ID {
			return true
		}
		return event.OwnerID == viewer.ID
	})
}

func (h *SubscriptionHandler) stream(w http.ResponseWriter, r *http.Request, topic string, match func(domain.OrderEvent) bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.broker.Subscribe(r.Context(), topic)
	defer cancel()

	h.logger.Info("subscription opened", "topic", topic)
	defer h.logger.Info("subscription closed", "topic", topic)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !match(event) {
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				// Fail closed: drop the event for this subscriber.
				h.logger.Error("failed to encode event", "error", err, "topic", topic)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
