package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/authz"
	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/router"
	"github.com/sendrelay/smsgw/internal/transform"
	"github.com/sendrelay/smsgw/internal/util"
)

// gatewayTracer is the OTEL tracer used for request dispatch.
var gatewayTracer = otel.Tracer("smsgw/gateway")

// Gateway routes inbound requests through the match, authorize,
// transform, dispatch pipeline.
type Gateway interface {
	// Dispatch routes a single request to its handler.
	Dispatch(ctx context.Context, req *core.Request) (*core.Response, error)

	// Table returns the route table, for registration and docs.
	Table() *router.Table
}

// RouteRateLimiter enforces a mapping's own rate-limit hint. Buckets are
// scoped per (API key, route pattern) pair.
type RouteRateLimiter interface {
	AllowRoute(keyID, pattern string, routeRPS int) bool
}

// gateway implements the Gateway interface.
type gateway struct {
	table       *router.Table
	gate        authz.Gate
	transformer transform.Transformer
	limiter     RouteRateLimiter
	logger      observability.Logger
}

// Option is a functional option for the gateway.
type Option func(*gateway)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *gateway) {
		g.logger = logger
	}
}

// WithGate sets the permission gate.
func WithGate(gate authz.Gate) Option {
	return func(g *gateway) {
		g.gate = gate
	}
}

// WithTransformer sets the request transformer.
func WithTransformer(t transform.Transformer) Option {
	return func(g *gateway) {
		g.transformer = t
	}
}

// WithRouteRateLimiter sets the limiter enforcing per-route rate-limit
// hints. Without one, route hints are not enforced.
func WithRouteRateLimiter(l RouteRateLimiter) Option {
	return func(g *gateway) {
		g.limiter = l
	}
}

// New creates a new gateway around the given route table.
func New(table *router.Table, opts ...Option) Gateway {
	g := &gateway{
		table:  table,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.gate == nil {
		g.gate = authz.NewGate()
	}
	if g.transformer == nil {
		g.transformer = transform.NewTransformer()
	}

	return g
}

// Table returns the route table.
func (g *gateway) Table() *router.Table {
	return g.table
}

// Dispatch routes a single request: find the route, authorize the caller,
// enrich the request, then invoke the handler.
func (g *gateway) Dispatch(ctx context.Context, req *core.Request) (*core.Response, error) {
	start := time.Now()

	ctx, span := gatewayTracer.Start(ctx, "gateway.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.target", req.Path),
		),
	)
	defer span.End()

	match, ok := g.table.FindRoute(req.Method, req.Path)
	if !ok {
		g.logger.Debug("no route matched",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
		)
		return nil, util.NewRouteNotFoundError(req.Method, req.Path)
	}

	// Record the matched pattern for the metrics middleware before any
	// rejection, so denied requests are labeled with their route.
	util.SetRoute(ctx, match.Mapping.Pattern)
	span.SetAttributes(attribute.String("http.route", match.Mapping.Pattern))

	caller, _ := auth.CallerFromContext(ctx)

	if err := g.gate.Authorize(ctx, caller, &match.Mapping); err != nil {
		return nil, err
	}

	// The key-wide limit is enforced at the middleware; mappings carrying
	// their own hint get an additional per-route bucket here, where the
	// matched pattern is known.
	if g.limiter != nil && match.Mapping.RateLimit > 0 && caller != nil {
		if !g.limiter.AllowRoute(caller.APIKeyID, match.Mapping.Pattern, match.Mapping.RateLimit) {
			g.logger.Warn("route rate limit exceeded",
				observability.String("api_key_id", caller.APIKeyID),
				observability.String("pattern", match.Mapping.Pattern),
				observability.Int("limit", match.Mapping.RateLimit),
			)
			return nil, util.NewRateLimitError(match.Mapping.RateLimit, time.Second)
		}
	}

	enriched, err := g.transformer.Transform(ctx, req, caller, match)
	if err != nil {
		return nil, util.WrapError(err, "transform request")
	}

	if match.Mapping.Handler == nil {
		return nil, fmt.Errorf("route %s %s has no handler", match.Mapping.Method, match.Mapping.Pattern)
	}

	resp, err := match.Mapping.Handler(ctx, enriched)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("request dispatched",
		observability.String("method", req.Method),
		observability.String("pattern", match.Mapping.Pattern),
		observability.String("request_id", enriched.Meta.RequestID),
		observability.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

// Ensure gateway implements Gateway.
var _ Gateway = (*gateway)(nil)
