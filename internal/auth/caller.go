// Package auth provides the authenticated caller model for the gateway.
package auth

import (
	"context"
	"time"
)

// CallerContext is the authenticated identity and entitlements attached to
// an inbound request after API-key validation. Read-only to the router.
type CallerContext struct {
	// UserID is the platform account that owns the API key.
	UserID string `json:"user_id"`

	// APIKeyID identifies the API key used to authenticate.
	APIKeyID string `json:"api_key_id"`

	// GrantedPermissions are the permission tokens granted to the key,
	// e.g. "sms:send" or "wallet:read".
	GrantedPermissions []string `json:"permissions,omitempty"`

	// RateLimit is the per-key requests-per-second allowance.
	RateLimit int `json:"rate_limit,omitempty"`

	// AuthTime is when the authentication occurred.
	AuthTime time.Time `json:"auth_time,omitempty"`
}

// HasPermission checks if the caller holds a specific permission.
func (c *CallerContext) HasPermission(permission string) bool {
	for _, p := range c.GrantedPermissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasAnyPermission checks if the caller holds any of the listed permissions.
func (c *CallerContext) HasAnyPermission(permissions ...string) bool {
	for _, permission := range permissions {
		if c.HasPermission(permission) {
			return true
		}
	}
	return false
}

// callerContextKey is the context key type for the caller.
type callerContextKey struct{}

// ContextWithCaller adds a caller to the context.
func ContextWithCaller(ctx context.Context, caller *CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from the context.
func CallerFromContext(ctx context.Context) (*CallerContext, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(*CallerContext)
	return caller, ok
}
