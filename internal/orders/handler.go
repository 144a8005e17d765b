package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createOrderRequest struct {
	RestaurantID string       `json:"restaurant_id"`
	Items        []CreateItem `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RestaurantID == "" || len(req.Items) == 0 {
		h.writeFail(w, http.StatusBadRequest, "restaurant_id and items are required")
		return
	}

	order, err := h.service.Create(r.Context(), viewer, req.RestaurantID, req.Items)
	if err != nil {
		h.writeServiceError(w, err, "could not create order")
		return
	}

	h.writeOK(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.OrderStatus(raw)
		if !s.Valid() {
			h.writeFail(w, http.StatusBadRequest, "invalid order status")
			return
		}
		status = &s
	}

	orders, err := h.service.GetMany(r.Context(), viewer, status)
	if err != nil {
		h.writeServiceError(w, err, "could not get orders")
		return
	}

	h.writeOK(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	id := r.PathValue("id")
	if id == "" {
		h.writeFail(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.GetOne(r.Context(), viewer, id)
	if err != nil {
		h.writeServiceError(w, err, "could not get order")
		return
	}

	h.writeOK(w, http.StatusOK, map[string]any{"order": order})
}

type editOrderRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	id := r.PathValue("id")
	if id == "" {
		h.writeFail(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req editOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.Edit(r.Context(), viewer, id, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "could not edit order")
		return
	}

	h.writeOK(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) HandleTake(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	id := r.PathValue("id")
	if id == "" {
		h.writeFail(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Take(r.Context(), viewer, id)
	if err != nil {
		h.writeServiceError(w, err, "could not take order")
		return
	}

	h.writeOK(w, http.StatusOK, map[string]any{"order": order})
}

// writeServiceError maps the service's recoverable errors to envelope
// responses; anything unexpected is logged and downgraded to the generic
// fallback message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrRestaurantNotFound),
		errors.Is(err, ErrDishNotFound),
		errors.Is(err, ErrOrderNotFound):
		h.writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCannotSee), errors.Is(err, ErrCannotEdit):
		h.writeFail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyTaken):
		h.writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatus):
		h.writeFail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		h.writeFail(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) writeOK(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeFail(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
