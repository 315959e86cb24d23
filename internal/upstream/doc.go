// Package upstream forwards matched requests to backend services.
//
// Each backend gets a Client with its own circuit breaker. Route
// handlers are produced via Client.Handler, which binds an upstream path
// template; :name segments in the template are filled from the path
// parameters the router extracted. Backend 5xx responses and transport
// failures count against the breaker; while it is open, requests fail
// fast with a 502.
package upstream
