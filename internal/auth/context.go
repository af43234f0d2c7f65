package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is the coarse access level carried in the JWT.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Role        Role
	TenantID    string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// TenantFromContext returns the tenant ID of the authenticated user, or ""
// when the request is unauthenticated.
func TenantFromContext(ctx context.Context) string {
	user, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return user.TenantID
}

// CanWrite reports whether the user may perform mutating operations.
func (u *UserContext) CanWrite() bool {
	return u.Role == RoleAdmin || u.Role == RoleOperator
}

// IsAdmin reports whether the user has administrative access.
func (u *UserContext) IsAdmin() bool {
	return u.Role == RoleAdmin
}
