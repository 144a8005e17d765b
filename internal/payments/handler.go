package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
	RestaurantID  string `json:"restaurant_id"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TransactionID == "" || req.RestaurantID == "" {
		h.writeFail(w, http.StatusBadRequest, "transaction_id and restaurant_id are required")
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), viewer, req.TransactionID, req.RestaurantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRestaurantNotFound):
			h.writeFail(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotOwner):
			h.writeFail(w, http.StatusForbidden, err.Error())
		default:
			h.logger.Error("could not create payment", "error", err)
			h.writeFail(w, http.StatusInternalServerError, "could not create payment")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "payment": payment})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	payments, err := h.service.ListPayments(r.Context(), viewer)
	if err != nil {
		h.logger.Error("could not list payments", "error", err)
		h.writeFail(w, http.StatusInternalServerError, "could not list payments")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "payments": payments})
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
