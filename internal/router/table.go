package router

import (
	"sort"
	"sync"

	"github.com/sendrelay/smsgw/internal/gateway/core"
)

// Mapping is a declarative rule binding an HTTP method and path pattern to
// a handler and required permissions. Immutable once registered.
type Mapping struct {
	// Method is the HTTP verb. Comparison is exact-string and
	// case-sensitive; routes are registered exactly.
	Method string

	// Pattern is the path pattern, e.g. /v1/sms/status/:messageId.
	Pattern string

	// Handler is the typed handler reference dispatched on match.
	Handler core.HandlerFunc

	// RequiredPermissions gates the route: holding any one of the listed
	// permissions is sufficient (logical OR).
	RequiredPermissions []string

	// RateLimit is an optional per-route requests-per-second hint.
	// Zero means no route-level hint.
	RateLimit int
}

// MatchResult is the outcome of a successful route lookup. Transient,
// created per request.
type MatchResult struct {
	Mapping Mapping
	Params  core.Params
}

// MappingInfo is the read-only reflection view of a registered mapping,
// used for generating API documentation.
type MappingInfo struct {
	Method              string   `json:"method"`
	Pattern             string   `json:"pattern"`
	RequiredPermissions []string `json:"requiredPermissions,omitempty"`
	ParamNames          []string `json:"paramNames,omitempty"`
	RateLimit           int      `json:"rateLimit,omitempty"`
}

// compiledMapping pairs a mapping with its compiled matcher.
type compiledMapping struct {
	mapping Mapping
	matcher *matcher
}

// Table holds the set of registered route mappings. It is constructed once
// at process startup and passed to the HTTP layer; registration completes
// before serving traffic, after which the table is read-only. Concurrent
// registration under live traffic is unsupported.
type Table struct {
	mappings []*compiledMapping
	index    map[string]*compiledMapping
	metrics  *Metrics
	mu       sync.RWMutex
}

// TableOption is a functional option for the route table.
type TableOption func(*Table)

// WithTableMetrics sets the table's metrics. Without one, lookups and
// registrations are not instrumented.
func WithTableMetrics(m *Metrics) TableOption {
	return func(t *Table) {
		t.metrics = m
	}
}

// NewTable creates an empty route table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		mappings: make([]*compiledMapping, 0),
		index:    make(map[string]*compiledMapping),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// mappingKey builds the registration key for a mapping. The space
// separator cannot appear in either component of a well-formed route.
func mappingKey(method, pattern string) string {
	return method + " " + pattern
}

// Register inserts a mapping keyed by its exact (method, pattern) pair.
// Re-registering the same key replaces the prior mapping (last-write-wins,
// never merge) and keeps its original iteration position.
func (t *Table) Register(m Mapping) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := mappingKey(m.Method, m.Pattern)
	compiled := &compiledMapping{
		mapping: m,
		matcher: compilePattern(m.Pattern),
	}

	if existing, ok := t.index[key]; ok {
		for i, cm := range t.mappings {
			if cm == existing {
				t.mappings[i] = compiled
				break
			}
		}
		t.index[key] = compiled
		t.metrics.RecordRegistration(len(t.mappings))
		return
	}

	t.mappings = append(t.mappings, compiled)
	t.index[key] = compiled
	t.metrics.RecordRegistration(len(t.mappings))
}

// FindRoute looks up the first mapping matching the method and path, in
// registration order. The boolean reports whether a route matched; no
// match is a normal outcome, not an error. The empty path never matches.
func (t *Table) FindRoute(method, path string) (*MatchResult, bool) {
	if path == "" {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, cm := range t.mappings {
		if cm.mapping.Method != method {
			continue
		}
		if params, ok := cm.matcher.match(path); ok {
			t.metrics.RecordLookup("matched")
			return &MatchResult{
				Mapping: cm.mapping,
				Params:  params,
			}, true
		}
	}

	t.metrics.RecordLookup("unmatched")
	return nil, false
}

// Lookup returns the mapping registered under the exact (method, pattern)
// pair, without matching.
func (t *Table) Lookup(method, pattern string) (Mapping, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cm, ok := t.index[mappingKey(method, pattern)]
	if !ok {
		return Mapping{}, false
	}
	return cm.mapping, true
}

// Len returns the number of registered mappings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.mappings)
}

// Mappings enumerates all registered mappings sorted alphabetically by
// pattern (method as tiebreaker), for generating human-readable API docs.
// Each registered route appears exactly once.
func (t *Table) Mappings() []MappingInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	infos := make([]MappingInfo, 0, len(t.mappings))
	for _, cm := range t.mappings {
		infos = append(infos, MappingInfo{
			Method:              cm.mapping.Method,
			Pattern:             cm.mapping.Pattern,
			RequiredPermissions: append([]string(nil), cm.mapping.RequiredPermissions...),
			ParamNames:          ParamNames(cm.mapping.Pattern),
			RateLimit:           cm.mapping.RateLimit,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Pattern != infos[j].Pattern {
			return infos[i].Pattern < infos[j].Pattern
		}
		return infos[i].Method < infos[j].Method
	})

	return infos
}
