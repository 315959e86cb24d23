package apikey

import (
	"net/http"
	"strings"
)

// Header names recognized by the extractor.
const (
	// HeaderAPIKey is the dedicated API key header.
	HeaderAPIKey = "X-Api-Key"

	// HeaderAuthorization is the standard authorization header.
	HeaderAuthorization = "Authorization"

	// bearerPrefix is the scheme prefix for bearer credentials.
	bearerPrefix = "Bearer "
)

// ExtractKey extracts a raw API key from the request. The dedicated
// X-Api-Key header takes precedence over Authorization: Bearer.
// Returns an empty string when no key is present.
func ExtractKey(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}

	authHeader := r.Header.Get(HeaderAuthorization)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	}

	return ""
}
