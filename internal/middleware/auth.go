package middleware

import (
	"net/http"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/auth/apikey"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/util"
)

// Auth returns a middleware that authenticates requests by API key.
//
// A request carrying a valid key proceeds with the caller attached to
// its context. A request carrying an invalid key is rejected with 401.
// A request carrying no key proceeds without a caller; the permission
// gate rejects it if the matched route requires one.
func Auth(validator apikey.Validator, logger observability.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := apikey.ExtractKey(r)
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller, err := validator.Validate(r.Context(), rawKey)
			if err != nil {
				logger.Warn("API key rejected",
					observability.String("method", r.Method),
					observability.String("path", r.URL.Path),
					observability.String("remote_addr", r.RemoteAddr),
					observability.Error(err),
				)
				util.WriteJSONError(w, http.StatusUnauthorized, "unauthenticated", "invalid API key")
				return
			}

			ctx := auth.ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
