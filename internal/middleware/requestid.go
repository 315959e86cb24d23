package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sendrelay/smsgw/internal/observability"
)

// RequestIDHeader is the header name for the request correlation ID.
const RequestIDHeader = "X-Request-Id"

// RequestID returns a middleware that assigns each request a correlation
// ID, echoing a client-supplied X-Request-Id when present.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator returns a middleware that uses a custom ID
// generator.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = generator()
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
