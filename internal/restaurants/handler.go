package restaurants

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var input RestaurantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" || input.Address == "" {
		h.writeFail(w, http.StatusBadRequest, "name and address are required")
		return
	}

	restaurant, err := h.service.CreateRestaurant(r.Context(), viewer, input)
	if err != nil {
		h.writeServiceError(w, err, "could not create restaurant")
		return
	}
	h.writeOK(w, http.StatusCreated, map[string]any{"restaurant": restaurant})
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var input RestaurantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	restaurant, err := h.service.EditRestaurant(r.Context(), viewer, r.PathValue("id"), input)
	if err != nil {
		h.writeServiceError(w, err, "could not edit restaurant")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"restaurant": restaurant})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	if err := h.service.DeleteRestaurant(r.Context(), viewer, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "could not delete restaurant")
		return
	}
	h.writeOK(w, http.StatusOK, nil)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	result, err := h.service.AllRestaurants(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, err, "could not list restaurants")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	restaurant, menu, err := h.service.FindRestaurant(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "could not get restaurant")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"restaurant": restaurant, "menu": menu})
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeFail(w, http.StatusBadRequest, "missing search query")
		return
	}
	result, err := h.service.SearchRestaurants(r.Context(), query, pageParam(r))
	if err != nil {
		h.writeServiceError(w, err, "could not search restaurants")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.AllCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "could not list categories")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	category, result, err := h.service.FindCategory(r.Context(), r.PathValue("slug"), pageParam(r))
	if err != nil {
		h.writeServiceError(w, err, "could not get category")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"category": category, "result": result})
}

func (h *Handler) HandleCreateDish(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var input DishInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.RestaurantID == "" || input.Name == "" || input.Price <= 0 {
		h.writeFail(w, http.StatusBadRequest, "restaurant_id, name and a positive price are required")
		return
	}

	dish, err := h.service.CreateDish(r.Context(), viewer, input)
	if err != nil {
		h.writeServiceError(w, err, "could not create dish")
		return
	}
	h.writeOK(w, http.StatusCreated, map[string]any{"dish": dish})
}

func (h *Handler) HandleEditDish(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var input DishInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dish, err := h.service.EditDish(r.Context(), viewer, r.PathValue("id"), input)
	if err != nil {
		h.writeServiceError(w, err, "could not edit dish")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"dish": dish})
}

func (h *Handler) HandleDeleteDish(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	if err := h.service.DeleteDish(r.Context(), viewer, r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "could not delete dish")
		return
	}
	h.writeOK(w, http.StatusOK, nil)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrRestaurantNotFound),
		errors.Is(err, ErrCategoryNotFound),
		errors.Is(err, ErrDishNotFound):
		h.writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOwner):
		h.writeFail(w, http.StatusForbidden, err.Error())
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
