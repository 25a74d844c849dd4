// Package thi is the HTTP transport adapter for the THI campus webservice.
//
// The webservice speaks a single-endpoint RPC dialect: every call is a
// form-encoded POST carrying service, method, format and endpoint-specific
// parameters. Authenticated calls additionally carry the session token as a
// plain parameter; attaching it is the caller's job.
package thi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
)

// DefaultEndpoint is the production webservice endpoint.
const DefaultEndpoint = "https://hiplan.thi.de/webservice/production2/index.php"

// DefaultUserAgent identifies this client to the upstream.
const DefaultUserAgent = "campus-client/1.0"

// Request is the descriptor of one webservice call. It is not cached
// itself; it is only used to build the outbound call (cache keys are
// supplied by the caller).
type Request struct {
	Service string
	Method  string
	// Format defaults to "json".
	Format string
	Params map[string]string
}

// WithParam returns a copy of the request with one extra parameter set.
// The receiver's parameter map is never mutated.
func (r Request) WithParam(key, value string) Request {
	params := make(map[string]string, len(r.Params)+1)
	for k, v := range r.Params {
		params[k] = v
	}
	params[key] = value
	r.Params = params
	return r
}

// Transport issues webservice calls and decodes the response envelope.
type Transport struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring a Transport.
type Option func(*Transport)

// WithHTTPClient sets a custom http.Client. Useful for testing and custom
// transport configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) {
		t.httpClient = hc
	}
}

// WithTimeout sets the HTTP request timeout. Ignored when a custom
// http.Client is supplied.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if t.httpClient == nil {
			t.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a Transport for the given endpoint. An empty endpoint selects
// the production webservice.
func New(endpoint string, opts ...Option) *Transport {
	t := &Transport{
		endpoint:  endpoint,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	if t.endpoint == "" {
		t.endpoint = DefaultEndpoint
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return t
}

// Do issues one webservice call and decodes the raw response envelope.
// Envelope classification is the caller's job; Do only fails on transport
// and decoding errors.
func (t *Transport) Do(ctx context.Context, req Request) (campus.Envelope, error) {
	form := url.Values{}
	form.Set("service", req.Service)
	form.Set("method", req.Method)
	if req.Format != "" {
		form.Set("format", req.Format)
	} else {
		form.Set("format", "json")
	}
	for k, v := range req.Params {
		form.Set(k, v)
	}

	requestID := uuid.NewString()
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return campus.Envelope{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", t.userAgent)

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return campus.Envelope{}, fmt.Errorf("call %s/%s: %w", req.Service, req.Method, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return campus.Envelope{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return campus.Envelope{}, fmt.Errorf("call %s/%s: upstream returned HTTP %d: %s",
			req.Service, req.Method, httpResp.StatusCode, truncate(body, 200))
	}

	var env campus.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return campus.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	t.logger.Debug("webservice call",
		"request_id", requestID,
		"service", req.Service,
		"method", req.Method,
		"status", env.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return env, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
