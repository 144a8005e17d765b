package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
)

type contextKey struct{}

var viewerKey contextKey

// UserLoader resolves a token subject to a full user record.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Middleware turns a bearer token into a viewer attached to the request
// context. A missing or bad token is not an error here; role guards decide
// whether an anonymous request may proceed.
type Middleware struct {
	tokens *TokenManager
	users  UserLoader
	logger *slog.Logger
}

func NewMiddleware(tokens *TokenManager, users UserLoader, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, users: users, logger: logger}
}

func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			userID, err := m.tokens.Parse(strings.TrimSpace(token))
			if err == nil {
				user, err := m.users.GetByID(r.Context(), userID)
				if err != nil {
					m.logger.Error("failed to load token user", "error", err, "user_id", userID)
				} else if user != nil {
					r = r.WithContext(WithViewer(r.Context(), user))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func WithViewer(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, viewerKey, user)
}

// ViewerFrom returns the authenticated viewer attached to the context.
func ViewerFrom(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(viewerKey).(*domain.User)
	return user, ok
}

// RequireRole guards a handler: the request must carry an authenticated
// viewer whose role is one of the allowed set. An empty set admits any
// authenticated role.
func RequireRole(next http.HandlerFunc, roles ...domain.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := ViewerFrom(r.Context())
		if !ok {
			writeFail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if viewer.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeFail(w, http.StatusForbidden, "forbidden")
				return
			}
		}
		next(w, r)
	}
}

func writeFail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}
