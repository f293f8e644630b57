package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/starlow12/recipe/internal/utils/jwt"
	"github.com/starlow12/recipe/internal/utils/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

// AuthMiddleware creates a middleware that validates JWT tokens and extracts user ID
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Authorization header required")))
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Invalid authorization header format")))
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Token not provided")))
				return
			}

			userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
			if err != nil {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("Invalid token")))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
