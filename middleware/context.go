package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// UserNameKey is the context key for the authenticated user name
	UserNameKey contextKey = "user_name"

	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "user_id"

	// UserRolesKey is the context key for the authenticated user's roles
	UserRolesKey contextKey = "user_roles"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// WithUser adds the name, ID and roles of an authenticated user to the context.
// The roles slice is copied so handlers cannot reach the stored session.
func WithUser(ctx context.Context, name string, id uuid.UUID, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserNameKey, name)
	ctx = context.WithValue(ctx, UserIDKey, id)
	return context.WithValue(ctx, UserRolesKey, append([]string(nil), roles...))
}

// UserNameFromContext retrieves the authenticated user name from context
func UserNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(UserNameKey).(string)
	return name, ok
}

// UserIDFromContext retrieves the authenticated user ID from context
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return id, ok
}

// UserRolesFromContext retrieves the authenticated user's roles from context
func UserRolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
