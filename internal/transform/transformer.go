package transform

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/router"
)

// Headers set on transformed requests for downstream services.
const (
	// HeaderUserID carries the authenticated platform account.
	HeaderUserID = "X-User-Id"

	// HeaderAPIKeyID carries the public ID of the authenticating key.
	HeaderAPIKeyID = "X-Api-Key-Id"

	// HeaderRequestID carries the correlation identifier.
	HeaderRequestID = "X-Request-Id"

	// bodyUserIDField is the body field enriched with the caller's account.
	bodyUserIDField = "userId"
)

// Transformer enriches a matched request before handler dispatch.
type Transformer interface {
	// Transform returns a new enriched request. The inbound request is
	// never mutated.
	Transform(ctx context.Context, req *core.Request, caller *auth.CallerContext, match *router.MatchResult) (*core.Request, error)
}

// transformer implements the Transformer interface.
type transformer struct {
	logger observability.Logger

	// newRequestID generates correlation IDs; replaceable in tests.
	newRequestID func() string
}

// TransformerOption is a functional option for the transformer.
type TransformerOption func(*transformer)

// WithTransformerLogger sets the logger.
func WithTransformerLogger(logger observability.Logger) TransformerOption {
	return func(t *transformer) {
		t.logger = logger
	}
}

// WithRequestIDGenerator sets the correlation ID generator.
func WithRequestIDGenerator(fn func() string) TransformerOption {
	return func(t *transformer) {
		t.newRequestID = fn
	}
}

// NewTransformer creates a new request transformer.
func NewTransformer(opts ...TransformerOption) Transformer {
	t := &transformer{
		logger:       observability.NopLogger(),
		newRequestID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Transform returns a new enriched request carrying the extracted path
// parameters, gateway metadata, identity headers, and a correlation ID.
// The ID is the client-supplied header when present, then the ID already
// assigned on the context, and only then a freshly generated one.
//
// When the body is a JSON object without a userId field, the caller's
// account ID is injected. An existing userId is never overwritten.
func (t *transformer) Transform(ctx context.Context, req *core.Request, caller *auth.CallerContext, match *router.MatchResult) (*core.Request, error) {
	enriched := req.Clone()

	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = observability.RequestIDFromContext(ctx)
	}
	if requestID == "" {
		requestID = t.newRequestID()
	}

	enriched.Params = append(core.Params(nil), match.Params...)
	enriched.Meta = core.Metadata{
		RequestID:      requestID,
		OriginalPath:   req.Path,
		MatchedPattern: match.Mapping.Pattern,
		PathParams:     append(core.Params(nil), match.Params...),
		RawQuery:       req.Meta.RawQuery,
	}

	if enriched.Header == nil {
		enriched.Header = make(http.Header)
	}
	enriched.Header.Set(HeaderRequestID, requestID)
	if caller != nil {
		enriched.Header.Set(HeaderUserID, caller.UserID)
		enriched.Header.Set(HeaderAPIKeyID, caller.APIKeyID)
	}

	enriched.Body = t.enrichBody(req.Body, caller)

	t.logger.Debug("request transformed",
		observability.String("request_id", requestID),
		observability.String("pattern", match.Mapping.Pattern),
		observability.Int("path_params", len(match.Params)),
	)

	return enriched, nil
}

// enrichBody injects the caller's account ID into object bodies. Bodies
// that are not JSON objects pass through untouched, as does an object
// that already carries a userId.
func (t *transformer) enrichBody(body interface{}, caller *auth.CallerContext) interface{} {
	if caller == nil || caller.UserID == "" {
		return body
	}

	obj, ok := body.(map[string]interface{})
	if !ok {
		return body
	}

	if _, exists := obj[bodyUserIDField]; exists {
		return body
	}

	enriched := make(map[string]interface{}, len(obj)+1)
	for k, v := range obj {
		enriched[k] = v
	}
	enriched[bodyUserIDField] = caller.UserID

	return enriched
}

// Ensure transformer implements Transformer.
var _ Transformer = (*transformer)(nil)
