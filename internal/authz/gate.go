package authz

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/router"
)

// authzTracer is the OTEL tracer used for authorization operations.
var authzTracer = otel.Tracer("smsgw/authz")

// Gate decides whether a caller may invoke a route.
type Gate interface {
	// Authorize returns nil if the caller may invoke the mapped route.
	// A nil caller yields an error satisfying util.ErrUnauthenticated;
	// a caller without any of the required permissions yields an error
	// satisfying util.ErrForbidden.
	Authorize(ctx context.Context, caller *auth.CallerContext, mapping *router.Mapping) error
}

// gate implements the Gate interface.
type gate struct {
	logger  observability.Logger
	metrics *Metrics
}

// GateOption is a functional option for the gate.
type GateOption func(*gate)

// WithGateLogger sets the logger.
func WithGateLogger(logger observability.Logger) GateOption {
	return func(g *gate) {
		g.logger = logger
	}
}

// WithGateMetrics sets the metrics.
func WithGateMetrics(metrics *Metrics) GateOption {
	return func(g *gate) {
		g.metrics = metrics
	}
}

// NewGate creates a new permission gate.
func NewGate(opts ...GateOption) Gate {
	g := &gate{
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("smsgw")
	}

	return g
}

// Authorize returns nil if the caller may invoke the mapped route.
//
// A route with no required permissions admits any authenticated caller.
// Otherwise the caller needs at least one of the route's required
// permissions.
func (g *gate) Authorize(ctx context.Context, caller *auth.CallerContext, mapping *router.Mapping) error {
	start := time.Now()

	_, span := authzTracer.Start(ctx, "authz.authorize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("route.method", mapping.Method),
			attribute.String("route.pattern", mapping.Pattern),
		),
	)
	defer span.End()

	if caller == nil {
		span.SetAttributes(attribute.String("authz.decision", "unauthenticated"))
		g.metrics.RecordDecision("denied", "unauthenticated", time.Since(start))
		return ErrNoCaller
	}

	span.SetAttributes(attribute.String("caller.user_id", caller.UserID))

	if len(mapping.RequiredPermissions) == 0 {
		span.SetAttributes(attribute.String("authz.decision", "allowed"))
		g.metrics.RecordDecision("allowed", "open_route", time.Since(start))
		return nil
	}

	if caller.HasAnyPermission(mapping.RequiredPermissions...) {
		span.SetAttributes(attribute.String("authz.decision", "allowed"))
		g.metrics.RecordDecision("allowed", "permission_match", time.Since(start))
		g.logger.Debug("access granted",
			observability.String("user_id", caller.UserID),
			observability.String("method", mapping.Method),
			observability.String("pattern", mapping.Pattern),
		)
		return nil
	}

	span.SetAttributes(attribute.String("authz.decision", "forbidden"))
	g.metrics.RecordDecision("denied", "missing_permission", time.Since(start))
	g.logger.Warn("access denied",
		observability.String("user_id", caller.UserID),
		observability.String("method", mapping.Method),
		observability.String("pattern", mapping.Pattern),
		observability.Strings("required_permissions", mapping.RequiredPermissions),
		observability.Strings("granted_permissions", caller.GrantedPermissions),
	)

	return NewForbiddenError(caller.UserID, mapping.Method, mapping.Pattern, mapping.RequiredPermissions)
}

// Ensure gate implements Gate.
var _ Gate = (*gate)(nil)
