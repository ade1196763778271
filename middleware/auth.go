package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cyclocross/stevenscup-app/models"
	"github.com/cyclocross/stevenscup-app/services"
)

type contextKey string

const userContextKey contextKey = "admin_user"

// SessionCookieName — имя cookie с токеном сессии администратора.
const SessionCookieName = "session_token"

// UserFromContext возвращает администратора, положенного RequireAdmin.
func UserFromContext(ctx context.Context) (*models.AdminUser, bool) {
	user, ok := ctx.Value(userContextKey).(*models.AdminUser)
	return user, ok
}

// TokenFromRequest достает токен сессии из заголовка Authorization
// (Bearer) или из cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAdmin пропускает только запросы с валидной админской сессией
// и кладет пользователя в контекст запроса.
func RequireAdmin(authService services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w)
				return
			}

			user, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}
