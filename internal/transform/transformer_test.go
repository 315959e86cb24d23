package transform

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/router"
)

func testMatch() *router.MatchResult {
	return &router.MatchResult{
		Mapping: router.Mapping{
			Method:  "GET",
			Pattern: "/v1/messages/:messageId",
		},
		Params: core.Params{{Name: "messageId", Value: "msg_123"}},
	}
}

func testCaller() *auth.CallerContext {
	return &auth.CallerContext{
		UserID:   "usr_1",
		APIKeyID: "live01",
	}
}

func TestTransformEnrichesRequest(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(WithRequestIDGenerator(func() string { return "req-fixed" }))

	req := &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
		Meta:   core.Metadata{RawQuery: "limit=10"},
	}

	enriched, err := tr.Transform(context.Background(), req, testCaller(), testMatch())
	require.NoError(t, err)

	assert.Equal(t, core.Params{{Name: "messageId", Value: "msg_123"}}, enriched.Params)
	assert.Equal(t, "req-fixed", enriched.Meta.RequestID)
	assert.Equal(t, "/v1/messages/msg_123", enriched.Meta.OriginalPath)
	assert.Equal(t, "/v1/messages/:messageId", enriched.Meta.MatchedPattern)
	assert.Equal(t, "limit=10", enriched.Meta.RawQuery)
	assert.Equal(t, "usr_1", enriched.Header.Get(HeaderUserID))
	assert.Equal(t, "live01", enriched.Header.Get(HeaderAPIKeyID))
	assert.Equal(t, "req-fixed", enriched.Header.Get(HeaderRequestID))
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	tr := NewTransformer()

	body := map[string]interface{}{"to": "+15551234567"}
	req := &core.Request{
		Method: "POST",
		Path:   "/v1/messages",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}

	match := &router.MatchResult{
		Mapping: router.Mapping{Method: "POST", Pattern: "/v1/messages"},
	}

	enriched, err := tr.Transform(context.Background(), req, testCaller(), match)
	require.NoError(t, err)
	require.NotSame(t, req, enriched)

	// Inbound request unchanged.
	assert.Empty(t, req.Params)
	assert.Empty(t, req.Meta.MatchedPattern)
	assert.Empty(t, req.Header.Get(HeaderUserID))
	assert.NotContains(t, body, "userId")

	// Enriched copy carries the injected field.
	enrichedBody, ok := enriched.Body.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "usr_1", enrichedBody["userId"])
	assert.Equal(t, "+15551234567", enrichedBody["to"])
}

func TestTransformRequestIDEcho(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(WithRequestIDGenerator(func() string { return "generated" }))

	req := &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	}
	req.Header.Set(HeaderRequestID, "client-supplied")

	enriched, err := tr.Transform(context.Background(), req, testCaller(), testMatch())
	require.NoError(t, err)

	assert.Equal(t, "client-supplied", enriched.Meta.RequestID)
	assert.Equal(t, "client-supplied", enriched.Header.Get(HeaderRequestID))
}

func TestTransformUsesContextRequestID(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(WithRequestIDGenerator(func() string { return "generated" }))

	req := &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	}

	ctx := observability.ContextWithRequestID(context.Background(), "ctx-assigned")

	enriched, err := tr.Transform(ctx, req, testCaller(), testMatch())
	require.NoError(t, err)

	// The ID assigned upstream wins over a freshly generated one, so the
	// client-visible ID and the one forwarded downstream stay identical.
	assert.Equal(t, "ctx-assigned", enriched.Meta.RequestID)
	assert.Equal(t, "ctx-assigned", enriched.Header.Get(HeaderRequestID))
}

func TestTransformHeaderBeatsContextRequestID(t *testing.T) {
	t.Parallel()

	tr := NewTransformer()

	req := &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	}
	req.Header.Set(HeaderRequestID, "client-supplied")

	ctx := observability.ContextWithRequestID(context.Background(), "ctx-assigned")

	enriched, err := tr.Transform(ctx, req, testCaller(), testMatch())
	require.NoError(t, err)

	assert.Equal(t, "client-supplied", enriched.Meta.RequestID)
}

func TestTransformBodyEnrichment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   interface{}
		caller *auth.CallerContext
		check  func(t *testing.T, got interface{})
	}{
		{
			name:   "object body gains userId",
			body:   map[string]interface{}{"to": "+15551234567"},
			caller: testCaller(),
			check: func(t *testing.T, got interface{}) {
				obj := got.(map[string]interface{})
				assert.Equal(t, "usr_1", obj["userId"])
			},
		},
		{
			name:   "existing userId is never overwritten",
			body:   map[string]interface{}{"userId": "usr_other"},
			caller: testCaller(),
			check: func(t *testing.T, got interface{}) {
				obj := got.(map[string]interface{})
				assert.Equal(t, "usr_other", obj["userId"])
			},
		},
		{
			name:   "nil body passes through",
			body:   nil,
			caller: testCaller(),
			check: func(t *testing.T, got interface{}) {
				assert.Nil(t, got)
			},
		},
		{
			name:   "array body passes through",
			body:   []interface{}{"a", "b"},
			caller: testCaller(),
			check: func(t *testing.T, got interface{}) {
				assert.Equal(t, []interface{}{"a", "b"}, got)
			},
		},
		{
			name:   "string body passes through",
			body:   "plain",
			caller: testCaller(),
			check: func(t *testing.T, got interface{}) {
				assert.Equal(t, "plain", got)
			},
		},
		{
			name:   "nil caller leaves body untouched",
			body:   map[string]interface{}{"to": "+15551234567"},
			caller: nil,
			check: func(t *testing.T, got interface{}) {
				obj := got.(map[string]interface{})
				assert.NotContains(t, obj, "userId")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := NewTransformer()
			req := &core.Request{
				Method: "POST",
				Path:   "/v1/messages",
				Header: http.Header{},
				Body:   tt.body,
			}

			match := &router.MatchResult{
				Mapping: router.Mapping{Method: "POST", Pattern: "/v1/messages"},
			}

			enriched, err := tr.Transform(context.Background(), req, tt.caller, match)
			require.NoError(t, err)
			tt.check(t, enriched.Body)
		})
	}
}

func TestTransformGeneratesUniqueRequestIDs(t *testing.T) {
	t.Parallel()

	tr := NewTransformer()

	req := &core.Request{Method: "GET", Path: "/v1/messages/msg_123", Header: http.Header{}}

	first, err := tr.Transform(context.Background(), req, testCaller(), testMatch())
	require.NoError(t, err)
	second, err := tr.Transform(context.Background(), req, testCaller(), testMatch())
	require.NoError(t, err)

	assert.NotEmpty(t, first.Meta.RequestID)
	assert.NotEqual(t, first.Meta.RequestID, second.Meta.RequestID)
}
