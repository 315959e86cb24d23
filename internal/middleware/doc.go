// Package middleware provides HTTP middleware for the SMS gateway.
//
// The chain applied by cmd/gateway is, outermost first: recovery,
// request ID, metrics, authentication, logging, and per-key rate
// limiting. Authentication attaches the caller to the request context;
// the permission gate downstream decides whether the caller may invoke
// the matched route. Logging sits inside authentication so the access
// line carries the caller's identity.
package middleware
