// Package transform enriches matched requests before handler dispatch.
//
// The transformer produces a new request rather than mutating the inbound
// one: path parameters extracted by the router are merged in, gateway
// metadata (matched pattern, original path, correlation ID) is attached,
// identity headers are set from the authenticated caller, and JSON object
// bodies gain a userId field when they do not already carry one.
package transform
