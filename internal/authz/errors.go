package authz

import (
	"fmt"
	"strings"

	"github.com/sendrelay/smsgw/internal/util"
)

// ErrNoCaller indicates that the request reached the permission gate
// without an authenticated caller.
var ErrNoCaller = fmt.Errorf("no authenticated caller: %w", util.ErrUnauthenticated)

// ForbiddenError indicates that an authenticated caller lacks every
// permission that would grant access to a route.
type ForbiddenError struct {
	// UserID is the caller that was denied.
	UserID string

	// Method and Pattern identify the route.
	Method  string
	Pattern string

	// Required are the permissions any one of which would have
	// granted access.
	Required []string
}

// Error returns the error message, listing the sufficient permissions.
func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied to %s %s: requires any of [%s]",
		e.Method, e.Pattern, strings.Join(e.Required, ", "))
}

// Is reports whether the target is util.ErrForbidden.
func (e *ForbiddenError) Is(target error) bool {
	return target == util.ErrForbidden
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(userID, method, pattern string, required []string) *ForbiddenError {
	return &ForbiddenError{
		UserID:   userID,
		Method:   method,
		Pattern:  pattern,
		Required: required,
	}
}
