// Package core defines the request model shared by the routing pipeline.
//
// The router, permission gate, transformer, and upstream client all operate
// on these types. They live in their own package so the router can hold
// typed handler references without importing the gateway pipeline.
package core

import (
	"context"
	"net/http"
	"net/url"
)

// Param is a single extracted path parameter.
type Param struct {
	Name  string
	Value string
}

// Params is an ordered list of extracted path parameters. Order follows
// the declaration order of the :name segments in the route pattern.
type Params []Param

// Get returns the value of the named parameter.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Map returns the parameters as a map. Duplicate names keep the last value.
func (p Params) Map() map[string]string {
	if len(p) == 0 {
		return nil
	}
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// Metadata is the gateway trace information attached to a request for
// downstream logging: original vs. matched route and extracted parameters.
type Metadata struct {
	// RequestID is the correlation identifier for this request.
	RequestID string

	// OriginalPath is the concrete path the client requested.
	OriginalPath string

	// MatchedPattern is the route pattern that matched.
	MatchedPattern string

	// PathParams are the parameters extracted from the path.
	PathParams Params

	// RawQuery is the unparsed query string.
	RawQuery string
}

// Request is the gateway's view of an inbound API request. The transformer
// returns a new enriched Request rather than mutating the inbound one.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   interface{}
	Params Params
	Meta   Metadata
}

// Clone returns a copy of the request with deep-copied headers, query and
// params. The body is shared: handlers treat it as read-only.
func (r *Request) Clone() *Request {
	clone := *r

	if r.Header != nil {
		clone.Header = r.Header.Clone()
	}

	if r.Query != nil {
		q := make(url.Values, len(r.Query))
		for k, v := range r.Query {
			q[k] = append([]string(nil), v...)
		}
		clone.Query = q
	}

	if r.Params != nil {
		clone.Params = append(Params(nil), r.Params...)
	}

	clone.Meta.PathParams = append(Params(nil), r.Meta.PathParams...)

	return &clone
}

// Response is the result of dispatching a request to a handler.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       interface{}
}

// HandlerFunc is a typed handler reference bound to a route mapping.
// Routes dispatch directly to the function, with no name-based lookup.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)
