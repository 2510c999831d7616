package utils

import (
	"context"
	"errors"
	"net/http"
)

type contextKey string

const UserIDKey contextKey = "userID"

// WithUserID returns a copy of ctx carrying the owner id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserIDFromContext(r *http.Request) (string, error) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", errors.New("user ID not found in context")
	}
	return userID, nil
}

// OwnerMiddleware attaches a fixed owner identity to every request.
// There is no authentication; the id comes from configuration.
func OwnerMiddleware(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
