// Package middleware содержит HTTP middleware для сервиса кофейного магазина.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mmeshcher/coffeeshop/internal/auth"
	"github.com/mmeshcher/coffeeshop/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

const bearerPrefix = "Bearer "

// AuthMiddleware проверяет токен доступа из заголовка Authorization.
type AuthMiddleware struct {
	tokens *auth.TokenManager
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным менеджером токенов.
func NewAuthMiddleware(tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Middleware проверяет токен и добавляет личность пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}

		id, err := a.tokens.VerifyAccessToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRole пропускает запрос, только если роль пользователя входит в перечисленные.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authorized")
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "access denied")
		})
	}
}

// RequirePrivileged пропускает сотрудников и администраторов.
func RequirePrivileged(next http.Handler) http.Handler {
	return RequireRole(model.RoleStaff, model.RoleAdmin)(next)
}

// WithIdentity кладёт личность пользователя в контекст.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext извлекает личность пользователя из контекста запроса.
func GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
