// Package router implements the gateway's route table and matcher.
//
// A Table maps (HTTP method, path pattern) pairs to typed handler
// references with required permissions and an optional rate-limit hint.
// Patterns use :name segments, each capturing exactly one path segment.
// Lookup walks mappings in registration order and returns the first match;
// registration is last-write-wins per exact (method, pattern) key.
//
// The table's lifecycle is init, freeze, serve: all registration happens
// during startup, before traffic. Method comparison is case-sensitive and
// trailing slashes are not normalized; both follow the registered form of
// the route exactly.
package router
