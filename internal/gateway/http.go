package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/util"
)

// maxBodyBytes caps inbound request bodies at 1 MiB. SMS payloads are
// small; anything larger is rejected.
const maxBodyBytes = 1 << 20

// Handler adapts a Gateway to net/http.
type Handler struct {
	gateway Gateway
	logger  observability.Logger
}

// NewHandler creates an HTTP handler around the gateway.
func NewHandler(gw Gateway, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{gateway: gw, logger: logger}
}

// ServeHTTP converts the HTTP request to the gateway's request model,
// dispatches it, and writes the handler's response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := h.buildRequest(r)
	if err != nil {
		util.WriteJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp, err := h.gateway.Dispatch(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeResponse(w, resp)
}

// buildRequest converts an HTTP request into the gateway request model,
// decoding JSON bodies when present.
func (h *Handler) buildRequest(r *http.Request) (*core.Request, error) {
	req := &core.Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header,
		Meta: core.Metadata{
			OriginalPath: r.URL.Path,
			RawQuery:     r.URL.RawQuery,
		},
	}

	if r.Body == nil {
		return req, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, util.WrapError(err, "read request body")
	}
	if len(data) > maxBodyBytes {
		return nil, util.WrapError(util.ErrInvalidInput, "request body too large")
	}
	if len(data) == 0 {
		return req, nil
	}

	var body interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, util.WrapError(util.ErrInvalidInput, "request body is not valid JSON")
	}
	req.Body = body

	return req, nil
}

// writeError maps a pipeline error to an HTTP status and writes the
// JSON error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFromError(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Int("status", status),
			observability.Error(err),
		)
	}

	util.WriteJSONError(w, status, code, err.Error())
}

// statusFromError maps pipeline errors to HTTP statuses.
func statusFromError(err error) (status int, code string) {
	var serverErr *util.ServerError

	switch {
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, util.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, util.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, util.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, util.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, util.ErrUpstreamUnavail):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.As(err, &serverErr):
		return serverErr.StatusCode, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeResponse writes a handler response, defaulting to 200 OK.
func (h *Handler) writeResponse(w http.ResponseWriter, resp *core.Response) {
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	if resp.Body == nil {
		w.WriteHeader(status)
		return
	}

	util.WriteJSON(w, status, resp.Body)
}

// Ensure Handler implements http.Handler.
var _ http.Handler = (*Handler)(nil)
