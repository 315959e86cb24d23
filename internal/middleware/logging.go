package middleware

import (
	"net/http"
	"time"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/util"
)

// Logging returns a middleware that logs one line per request.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(rw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("query", r.URL.RawQuery),
				observability.Int("status", rw.StatusCode),
				observability.Duration("duration", time.Since(start)),
				observability.String("remote_addr", r.RemoteAddr),
				observability.String("request_id", observability.RequestIDFromContext(r.Context())),
			}

			if caller, ok := auth.CallerFromContext(r.Context()); ok {
				fields = append(fields,
					observability.String("user_id", caller.UserID),
					observability.String("api_key_id", caller.APIKeyID),
				)
			}

			logger.Info("http request", fields...)
		})
	}
}
