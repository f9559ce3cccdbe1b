package utils

import (
	"context"
	"time"
)

type contextKey string

const ContextUserKey contextKey = "currentUser"

// AuthUser is the authenticated identity attached to the request context by
// the auth middleware and consumed by handlers and role checks.
type AuthUser struct {
	ID                string
	Name              string
	Email             string
	Role              string
	PasswordChangedAt *time.Time
}

func WithAuthUser(ctx context.Context, user AuthUser) context.Context {
	return context.WithValue(ctx, ContextUserKey, user)
}

func GetAuthUser(ctx context.Context) (AuthUser, bool) {
	user, ok := ctx.Value(ContextUserKey).(AuthUser)
	return user, ok
}
