// Package router provides the route table and path matching for the gateway.
package router

import (
	"regexp"
	"strings"

	"github.com/sendrelay/smsgw/internal/gateway/core"
)

// matcher matches concrete paths against a compiled :name-style pattern.
type matcher struct {
	pattern    string
	regex      *regexp.Regexp
	paramNames []string
}

// compilePattern translates a declarative pattern with :name segments into
// a matcher. Each :name segment captures exactly one path segment (no
// slash); literal segments must match exactly and the whole expression is
// anchored. Trailing slashes are not normalized: a pattern without a
// trailing slash does not match a path with one, since routes are
// registered exactly.
//
// Pattern syntax is never validated up front. A pattern that cannot
// compile yields a matcher that silently never matches.
func compilePattern(pattern string) *matcher {
	m := &matcher{pattern: pattern}

	segments := strings.Split(pattern, "/")

	var expr strings.Builder
	expr.WriteString("^")
	for i, seg := range segments {
		if i > 0 {
			expr.WriteString("/")
		}
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			name := seg[1:]
			m.paramNames = append(m.paramNames, name)
			expr.WriteString("([^/]+)")
		} else {
			expr.WriteString(regexp.QuoteMeta(seg))
		}
	}
	expr.WriteString("$")

	regex, err := regexp.Compile(expr.String())
	if err != nil {
		// Never matches; the mapping stays registered but dead.
		return m
	}
	m.regex = regex

	return m
}

// match reports whether path matches the pattern, binding parameters
// positionally in declaration order. Captured values may contain any
// non-slash characters; the caller validates parameter content.
func (m *matcher) match(path string) (core.Params, bool) {
	if m.regex == nil {
		return nil, false
	}

	submatches := m.regex.FindStringSubmatch(path)
	if submatches == nil {
		return nil, false
	}

	if len(m.paramNames) == 0 {
		return nil, true
	}

	params := make(core.Params, 0, len(m.paramNames))
	for i, name := range m.paramNames {
		if i+1 < len(submatches) {
			params = append(params, core.Param{Name: name, Value: submatches[i+1]})
		}
	}

	return params, true
}

// ParamNames returns the :name parameters declared in a pattern, in
// declaration order.
func ParamNames(pattern string) []string {
	var names []string
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			names = append(names, seg[1:])
		}
	}
	return names
}
