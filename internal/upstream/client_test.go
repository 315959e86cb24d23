package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/util"
)

func TestClientForwardsRequest(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotUserID string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUserID = r.Header.Get("X-User-Id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"msg_1","status":"queued"}`))
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL)

	req := &core.Request{
		Method: "POST",
		Path:   "/v1/messages",
		Header: http.Header{"X-User-Id": []string{"usr_1"}},
		Body:   map[string]interface{}{"to": "+15551234567", "userId": "usr_1"},
		Meta:   core.Metadata{RawQuery: "dryRun=true"},
	}

	resp, err := client.Do(context.Background(), req, "/internal/messages")
	require.NoError(t, err)

	assert.Equal(t, "/internal/messages", gotPath)
	assert.Equal(t, "dryRun=true", gotQuery)
	assert.Equal(t, "usr_1", gotUserID)
	assert.Equal(t, "+15551234567", gotBody["to"])

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	body := resp.Body.(map[string]interface{})
	assert.Equal(t, "msg_1", body["id"])
	assert.Equal(t, "queued", body["status"])
}

func TestClientExpandsPathParams(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL)

	req := &core.Request{
		Method: "GET",
		Params: core.Params{{Name: "messageId", Value: "msg_123"}},
		Header: http.Header{},
	}

	_, err := client.Do(context.Background(), req, "/internal/messages/:messageId")
	require.NoError(t, err)
	assert.Equal(t, "/internal/messages/msg_123", gotPath)
}

func TestClientMissingPathParam(t *testing.T) {
	t.Parallel()

	client := NewClient("sms-core", "http://127.0.0.1:1")

	req := &core.Request{Method: "GET", Header: http.Header{}}

	_, err := client.Do(context.Background(), req, "/internal/messages/:messageId")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messageId")
}

func TestClientServerErrorBecomesError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL)

	req := &core.Request{Method: "GET", Header: http.Header{}}

	_, err := client.Do(context.Background(), req, "/internal/health")
	require.Error(t, err)

	var serverErr *util.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusServiceUnavailable, serverErr.StatusCode)
}

func TestClientClientErrorPassesThrough(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"no such message"}`))
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL)

	req := &core.Request{Method: "GET", Header: http.Header{}}

	resp, err := client.Do(context.Background(), req, "/internal/messages/msg_x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := resp.Body.(map[string]interface{})
	assert.Equal(t, "not_found", body["error"])
}

func TestClientNetworkFailure(t *testing.T) {
	t.Parallel()

	client := NewClient("sms-core", "http://127.0.0.1:1",
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
	)

	req := &core.Request{Method: "GET", Header: http.Header{}}

	_, err := client.Do(context.Background(), req, "/internal/health")
	assert.ErrorIs(t, err, util.ErrUpstreamUnavail)
}

func TestClientBreakerOpens(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL, WithBreakerSettings(3, time.Minute))

	req := &core.Request{Method: "GET", Header: http.Header{}}

	for i := 0; i < 3; i++ {
		_, err := client.Do(context.Background(), req, "/internal/health")
		require.Error(t, err)
	}

	// The breaker is now open; requests fail fast as upstream unavailable.
	_, err := client.Do(context.Background(), req, "/internal/health")
	assert.ErrorIs(t, err, util.ErrUpstreamUnavail)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestClientHandler(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer server.Close()

	client := NewClient("sms-core", server.URL)
	handler := client.Handler("/internal/messages/:messageId")

	resp, err := handler(context.Background(), &core.Request{
		Method: "GET",
		Params: core.Params{{Name: "messageId", Value: "msg_123"}},
		Header: http.Header{},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	params := core.Params{
		{Name: "messageId", Value: "msg_123"},
		{Name: "partId", Value: "2"},
	}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{
			name:     "no params",
			template: "/internal/messages",
			want:     "/internal/messages",
		},
		{
			name:     "single param",
			template: "/internal/messages/:messageId",
			want:     "/internal/messages/msg_123",
		},
		{
			name:     "multiple params",
			template: "/internal/messages/:messageId/parts/:partId",
			want:     "/internal/messages/msg_123/parts/2",
		},
		{
			name:     "missing param",
			template: "/internal/accounts/:accountId",
			wantErr:  true,
		},
		{
			name:     "bare colon segment is literal",
			template: "/internal/:/x",
			want:     "/internal/:/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := expandPath(tt.template, params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
