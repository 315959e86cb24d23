package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sendrelay/smsgw/internal/gateway/core"
	"github.com/sendrelay/smsgw/internal/observability"
	"github.com/sendrelay/smsgw/internal/util"
)

// Client defaults.
const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout = 10 * time.Second

	// DefaultBreakerThreshold is the request count after which the
	// failure ratio trips the breaker.
	DefaultBreakerThreshold = 5

	// DefaultBreakerTimeout is how long the breaker stays open.
	DefaultBreakerTimeout = 30 * time.Second
)

// Client forwards gateway requests to a backend service over HTTP with
// circuit breaker protection.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
	metrics    *observability.Metrics

	breakerThreshold int
	breakerTimeout   time.Duration
}

// ClientOption is a functional option for the upstream client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics used to publish breaker state.
func WithClientMetrics(metrics *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBreakerSettings tunes the circuit breaker.
func WithBreakerSettings(threshold int, timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.breakerThreshold = threshold
		c.breakerTimeout = timeout
	}
}

// NewClient creates a new upstream client for the named backend.
func NewClient(name, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		name:             name,
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		logger:           observability.NopLogger(),
		breakerThreshold: DefaultBreakerThreshold,
		breakerTimeout:   DefaultBreakerTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	threshold := safeIntToUint32(c.breakerThreshold)

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("upstream breaker state change",
				observability.String("upstream", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if c.metrics != nil {
				c.metrics.SetUpstreamBreakerState(name, int(to))
			}
		},
	})

	return c
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n)
}

// Do forwards a request to the backend at the given path template.
// Template segments of the form :name are substituted from the request's
// extracted path parameters.
func (c *Client) Do(ctx context.Context, req *core.Request, pathTemplate string) (*core.Response, error) {
	upstreamPath, err := expandPath(pathTemplate, req.Params)
	if err != nil {
		return nil, util.WrapError(err, "expand upstream path")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.forward(ctx, req, upstreamPath)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, util.NewUpstreamErrorWithCause(c.name, "circuit breaker open", err)
		}
		return nil, err
	}

	return result.(*core.Response), nil
}

// forward performs the HTTP exchange. A 5xx response is returned as an
// error so the breaker counts it as a failure.
func (c *Client) forward(ctx context.Context, req *core.Request, upstreamPath string) (*core.Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, util.WrapError(err, "marshal upstream body")
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + upstreamPath
	if req.Meta.RawQuery != "" {
		target += "?" + req.Meta.RawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, util.NewUpstreamErrorWithCause(c.name, "build request", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, util.NewUpstreamErrorWithCause(c.name, "forward request", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, util.NewServerError(httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, util.NewUpstreamErrorWithCause(c.name, "read response", err)
	}

	resp := &core.Response{
		StatusCode: httpResp.StatusCode,
		Header:     http.Header{},
	}
	if ct := httpResp.Header.Get("Content-Type"); ct != "" {
		resp.Header.Set("Content-Type", ct)
	}

	if len(data) > 0 {
		var body interface{}
		if err := json.Unmarshal(data, &body); err != nil {
			// Non-JSON payloads pass through as raw text.
			resp.Body = string(data)
		} else {
			resp.Body = body
		}
	}

	return resp, nil
}

// Handler returns a route handler that forwards matched requests to the
// given upstream path template.
func (c *Client) Handler(pathTemplate string) core.HandlerFunc {
	return func(ctx context.Context, req *core.Request) (*core.Response, error) {
		return c.Do(ctx, req, pathTemplate)
	}
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// expandPath substitutes :name segments in the template with the
// request's path parameters.
func expandPath(template string, params core.Params) (string, error) {
	if !strings.Contains(template, ":") {
		return template, nil
	}

	segments := strings.Split(template, "/")
	for i, segment := range segments {
		if len(segment) > 1 && strings.HasPrefix(segment, ":") {
			name := segment[1:]
			value, ok := params.Get(name)
			if !ok {
				return "", fmt.Errorf("missing path parameter %q", name)
			}
			segments[i] = value
		}
	}

	return strings.Join(segments, "/"), nil
}
