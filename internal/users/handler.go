package users

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

type createAccountRequest struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     domain.UserRole `json:"role"`
}

func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeFail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.service.CreateAccount(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.writeServiceError(w, err, "could not create account")
		return
	}
	h.writeOK(w, http.StatusCreated, map[string]any{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "could not log in")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"token": token})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())
	h.writeOK(w, http.StatusOK, map[string]any{"user": viewer})
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "could not get profile")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"user": user})
}

type editProfileRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func (h *Handler) HandleEditProfile(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFrom(r.Context())

	var req editProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.EditProfile(r.Context(), viewer, req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "could not edit profile")
		return
	}
	h.writeOK(w, http.StatusOK, map[string]any{"user": user})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Code); err != nil {
		h.writeServiceError(w, err, "could not verify email")
		return
	}
	h.writeOK(w, http.StatusOK, nil)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrUnknownCode):
		h.writeFail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailTaken):
		h.writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWrongCredentials):
		h.writeFail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidRole):
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
