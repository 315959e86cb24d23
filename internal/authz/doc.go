// Package authz implements the permission gate for the SMS gateway.
//
// Every route carries a set of required permissions. A caller passes the
// gate when it holds at least one of them (OR semantics); a route with an
// empty set admits any authenticated caller. Requests without a caller
// are rejected as unauthenticated, which the HTTP layer maps to 401;
// callers missing every required permission are rejected as forbidden,
// mapped to 403.
//
// # Usage
//
//	gate := authz.NewGate(authz.WithGateLogger(logger))
//
//	if err := gate.Authorize(ctx, caller, mapping); err != nil {
//	    // errors.Is(err, util.ErrUnauthenticated) or util.ErrForbidden
//	}
package authz
