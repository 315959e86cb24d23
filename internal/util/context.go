package util

import (
	"context"
	"sync"
)

// contextKey is the private type for context keys in this package.
type contextKey string

const routeKey contextKey = "matched_route"

// routeHolder carries the matched route pattern up the middleware chain.
// Context values added by inner handlers are invisible to outer middleware,
// so the outer middleware installs the holder and the router fills it in.
type routeHolder struct {
	mu      sync.Mutex
	pattern string
}

// ContextWithRouteHolder installs an empty route holder in the context.
// Outer middleware calls this before dispatching to the router.
func ContextWithRouteHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, routeKey, &routeHolder{})
}

// SetRoute records the matched route pattern in the holder, if one is
// installed. Middleware uses it as a bounded-cardinality metrics label.
func SetRoute(ctx context.Context, pattern string) {
	holder, ok := ctx.Value(routeKey).(*routeHolder)
	if !ok {
		return
	}
	holder.mu.Lock()
	holder.pattern = pattern
	holder.mu.Unlock()
}

// RouteFromContext extracts the matched route pattern from the context.
// Returns an empty string if no route has been recorded.
func RouteFromContext(ctx context.Context) string {
	holder, ok := ctx.Value(routeKey).(*routeHolder)
	if !ok {
		return ""
	}
	holder.mu.Lock()
	defer holder.mu.Unlock()
	return holder.pattern
}
