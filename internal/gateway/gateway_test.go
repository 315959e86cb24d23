package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendrelay/smsgw/internal/auth"
	"github.com/sendrelay/smsgw/internal/authz"
	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/middleware"
	"github.com/sendrelay/smsgw/internal/router"
	"github.com/sendrelay/smsgw/internal/util"
)

func newTestGateway(t *testing.T) (Gateway, *router.Table) {
	t.Helper()

	table := router.NewTable()
	gw := New(table, WithGate(authz.NewGate(
		authz.WithGateMetrics(authz.NewMetricsWithRegisterer("test", prometheus.NewRegistry())),
	)))
	return gw, table
}

func echoHandler(ctx context.Context, req *core.Request) (*core.Response, error) {
	return &core.Response{
		StatusCode: http.StatusOK,
		Body: map[string]interface{}{
			"pattern": req.Meta.MatchedPattern,
			"params":  req.Params.Map(),
		},
	}, nil
}

func callerCtx(permissions ...string) context.Context {
	return auth.ContextWithCaller(context.Background(), &auth.CallerContext{
		UserID:             "usr_1",
		APIKeyID:           "live01",
		GrantedPermissions: permissions,
	})
}

func TestDispatchMatchedRoute(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	table.Register(router.Mapping{
		Method:              "GET",
		Pattern:             "/v1/messages/:messageId",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:read"},
	})

	resp, err := gw.Dispatch(callerCtx("sms:read"), &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	})
	require.NoError(t, err)

	body := resp.Body.(map[string]interface{})
	assert.Equal(t, "/v1/messages/:messageId", body["pattern"])
	assert.Equal(t, map[string]string{"messageId": "msg_123"}, body["params"])
}

func TestDispatchUnknownRoute(t *testing.T) {
	t.Parallel()

	gw, _ := newTestGateway(t)

	_, err := gw.Dispatch(callerCtx(), &core.Request{
		Method: "GET",
		Path:   "/v1/nope",
		Header: http.Header{},
	})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestDispatchUnauthenticated(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	table.Register(router.Mapping{
		Method:              "POST",
		Pattern:             "/v1/messages",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:send"},
	})

	_, err := gw.Dispatch(context.Background(), &core.Request{
		Method: "POST",
		Path:   "/v1/messages",
		Header: http.Header{},
	})
	assert.ErrorIs(t, err, util.ErrUnauthenticated)
}

func TestDispatchEnforcesRouteRateLimit(t *testing.T) {
	t.Parallel()

	rl := middleware.NewKeyRateLimiter(100, 100)
	t.Cleanup(rl.Stop)

	table := router.NewTable()
	gw := New(table,
		WithGate(authz.NewGate(
			authz.WithGateMetrics(authz.NewMetricsWithRegisterer("test", prometheus.NewRegistry())),
		)),
		WithRouteRateLimiter(rl),
	)

	table.Register(router.Mapping{
		Method:              "POST",
		Pattern:             "/v1/messages",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:send"},
		RateLimit:           1,
	})
	table.Register(router.Mapping{
		Method:              "GET",
		Pattern:             "/v1/messages/:messageId",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:read"},
	})

	send := &core.Request{Method: "POST", Path: "/v1/messages", Header: http.Header{}}

	_, err := gw.Dispatch(callerCtx("sms:send"), send)
	require.NoError(t, err)

	// The mapping's allowance of 1 is spent; the next call is limited.
	_, err = gw.Dispatch(callerCtx("sms:send"), send)
	assert.ErrorIs(t, err, util.ErrRateLimited)

	// Routes without a hint are untouched by the route bucket.
	_, err = gw.Dispatch(callerCtx("sms:read"), &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	})
	assert.NoError(t, err)
}

func TestDispatchForbidden(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	table.Register(router.Mapping{
		Method:              "POST",
		Pattern:             "/v1/messages",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:send"},
	})

	_, err := gw.Dispatch(callerCtx("sms:read"), &core.Request{
		Method: "POST",
		Path:   "/v1/messages",
		Header: http.Header{},
	})
	assert.ErrorIs(t, err, util.ErrForbidden)
	assert.Contains(t, err.Error(), "sms:send")
}

func TestDispatchHandlerError(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	handlerErr := errors.New("downstream exploded")
	table.Register(router.Mapping{
		Method:  "GET",
		Pattern: "/v1/messages",
		Handler: func(ctx context.Context, req *core.Request) (*core.Response, error) {
			return nil, handlerErr
		},
	})

	_, err := gw.Dispatch(callerCtx(), &core.Request{
		Method: "GET",
		Path:   "/v1/messages",
		Header: http.Header{},
	})
	assert.ErrorIs(t, err, handlerErr)
}

func TestDispatchNilHandler(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	table.Register(router.Mapping{
		Method:  "GET",
		Pattern: "/v1/messages",
	})

	_, err := gw.Dispatch(callerCtx(), &core.Request{
		Method: "GET",
		Path:   "/v1/messages",
		Header: http.Header{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler")
}

func TestDispatchRecordsRouteForMetrics(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)
	table.Register(router.Mapping{
		Method:              "GET",
		Pattern:             "/v1/messages/:messageId",
		Handler:             echoHandler,
		RequiredPermissions: []string{"sms:read"},
	})

	ctx := util.ContextWithRouteHolder(callerCtx())

	// Even a forbidden request is labeled with its matched route.
	_, err := gw.Dispatch(ctx, &core.Request{
		Method: "GET",
		Path:   "/v1/messages/msg_123",
		Header: http.Header{},
	})
	assert.ErrorIs(t, err, util.ErrForbidden)
	assert.Equal(t, "/v1/messages/:messageId", util.RouteFromContext(ctx))
}

func TestDispatchHandlerReceivesEnrichedRequest(t *testing.T) {
	t.Parallel()

	gw, table := newTestGateway(t)

	var seen *core.Request
	table.Register(router.Mapping{
		Method:  "POST",
		Pattern: "/v1/messages",
		Handler: func(ctx context.Context, req *core.Request) (*core.Response, error) {
			seen = req
			return &core.Response{StatusCode: http.StatusAccepted}, nil
		},
		RequiredPermissions: []string{"sms:send"},
	})

	inbound := &core.Request{
		Method: "POST",
		Path:   "/v1/messages",
		Header: http.Header{},
		Body:   map[string]interface{}{"to": "+15551234567"},
	}

	_, err := gw.Dispatch(callerCtx("sms:send"), inbound)
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.NotSame(t, inbound, seen)

	assert.Equal(t, "usr_1", seen.Header.Get("X-User-Id"))
	assert.Equal(t, "live01", seen.Header.Get("X-Api-Key-Id"))
	assert.NotEmpty(t, seen.Meta.RequestID)

	body := seen.Body.(map[string]interface{})
	assert.Equal(t, "usr_1", body["userId"])

	// The inbound request body was not mutated.
	assert.NotContains(t, inbound.Body.(map[string]interface{}), "userId")
}
