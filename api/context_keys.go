package api

import (
	"context"

	"github.com/0x3a/crits/core"
)

// contextKey is a private type to prevent context key collisions across packages
type contextKey string

const (
	// ContextKeyUsername stores the authenticated username (string)
	ContextKeyUsername contextKey = "username"

	// ContextKeyRoles stores the user's roles as a slice ([]string)
	ContextKeyRoles contextKey = "roles"

	// ContextKeyRequestID stores the unique request identifier (string)
	ContextKeyRequestID contextKey = "request_id"
)

// GetUsername extracts the username from the context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ContextKeyUsername).(string)
	return username, ok
}

// GetRoles extracts the user's roles from the context
func GetRoles(ctx context.Context) ([]string, bool) {
	roles, ok := ctx.Value(ContextKeyRoles).([]string)
	return roles, ok
}

// GetRequestID extracts the request id from the context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyRequestID).(string)
	return id, ok
}

// WithUsername returns a new context with the username set
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ContextKeyUsername, username)
}

// WithRoles returns a new context with the roles set
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// WithRequestID returns a new context with the request id set
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// analystFromContext builds the acting analyst from the auth context
func analystFromContext(ctx context.Context) core.Analyst {
	username, _ := GetUsername(ctx)
	roles, _ := GetRoles(ctx)
	return core.Analyst{Username: username, Roles: roles}
}
