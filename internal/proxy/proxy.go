// Package proxy implements the forwarding engine: it rewrites an inbound
// request for a target backend, executes it over a shared pooled transport
// with bounded retries and linear backoff, and normalizes the response.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/shopmesh/api-gateway/internal/gwerr"
	"github.com/shopmesh/api-gateway/pkg/telemetry"
)

// Config holds forwarding engine settings. Timeouts are per-phase: a
// connect-phase, read-phase and write-phase deadline are configured
// independently, and any one firing aborts the attempt.
type Config struct {
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	BackoffInterval time.Duration
	MaxConns        int
	MaxIdleConns    int
}

// DefaultConfig returns the default forwarding configuration.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxRetries:      3,
		BackoffInterval: 500 * time.Millisecond,
		MaxConns:        100,
		MaxIdleConns:    20,
	}
}

// Result is a normalized backend response: status, filtered headers and the
// fully buffered body. It is immutable once constructed.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write hands the result to the inbound response.
func (r *Result) Write(c *gin.Context) {
	for key, values := range r.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(r.StatusCode, contentType, r.Body)
}

// Client forwards requests to internal services over one shared pooled
// transport. Construct it once at startup, call Start before serving and
// Close at shutdown; the pooled transport is the only shared mutable state
// and is safe for concurrent use.
type Client struct {
	cfg        Config
	log        *zap.Logger
	httpClient *http.Client

	// sleep waits out a backoff interval; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an unstarted forwarding client.
func NewClient(cfg Config, log *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BackoffInterval <= 0 {
		cfg.BackoffInterval = def.BackoffInterval
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = def.MaxConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}

	return &Client{
		cfg:   cfg,
		log:   log,
		sleep: sleepContext,
	}
}

// Start initializes the pooled transport. It must be called before Forward.
func (p *Client) Start() {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   p.cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:       p.cfg.MaxConns,
		MaxIdleConns:          p.cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   p.cfg.MaxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: p.cfg.ReadTimeout,
		TLSHandshakeTimeout:   p.cfg.ConnectTimeout,
		ExpectContinueTimeout: p.cfg.WriteTimeout,
	}

	p.httpClient = &http.Client{
		Transport: transport,
		// Redirects from backends pass through to the caller untouched.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	p.log.Info("proxy client initialized",
		zap.Duration("timeout_connect", p.cfg.ConnectTimeout),
		zap.Duration("timeout_read", p.cfg.ReadTimeout),
		zap.Duration("timeout_write", p.cfg.WriteTimeout),
		zap.Int("max_conns", p.cfg.MaxConns),
		zap.Int("max_idle_conns", p.cfg.MaxIdleConns),
	)
}

// Close releases pooled connections.
func (p *Client) Close() {
	if p.httpClient != nil {
		if t, ok := p.httpClient.Transport.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
		p.log.Info("proxy client closed")
	}
}

// HTTPClient exposes the shared pooled client for collaborators that probe
// backends directly (the health service). It panics when unstarted.
func (p *Client) HTTPClient() *http.Client {
	if p.httpClient == nil {
		panic("proxy: client not started, call Start() first")
	}
	return p.httpClient
}

// attemptOutcome tags the result of one transport call. The retry loop is a
// pure function of this tag.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	// outcomeConnectFailed: the transport could not open a connection.
	// Retryable.
	outcomeConnectFailed
	// outcomeTimedOut: connect succeeded but a read/write deadline fired.
	// Not retryable.
	outcomeTimedOut
	// outcomeProtocolError: any other transport-level failure. Not
	// retryable, propagated unclassified.
	outcomeProtocolError
)

// classify maps a transport error to an attempt outcome. Dial-phase errors
// (connection refused, no route, dial timeout) count as connect failures;
// deadline errors after an established connection count as timeouts.
func classify(err error) attemptOutcome {
	if err == nil {
		return outcomeSuccess
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return outcomeConnectFailed
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return outcomeTimedOut
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return outcomeTimedOut
	}

	return outcomeProtocolError
}

// Forward proxies the inbound request to a backend service.
//
// The target URL is targetBaseURL (trailing slash stripped) joined with path
// (leading slash stripped), keeping the inbound query string verbatim. All
// inbound headers are copied except Host and Content-Length, which the
// transport recomputes; extraHeaders are then overlaid and win over any
// same-named inbound header. The body is buffered once and replayed across
// attempts.
//
// Connection failures are retried up to maxRetries times (<= 0 selects the
// configured default) with a linear backoff of BackoffInterval * attempt.
// A timeout during an established exchange fails immediately with a gateway
// timeout; exhausting all attempts fails with service unavailable. A
// received response is returned as-is whatever its status code.
func (p *Client) Forward(
	c *gin.Context,
	targetBaseURL string,
	path string,
	serviceName string,
	extraHeaders map[string]string,
	maxRetries int,
) (*Result, error) {
	if p.httpClient == nil {
		panic("proxy: client not started, call Start() first")
	}
	if maxRetries <= 0 {
		maxRetries = p.cfg.MaxRetries
	}

	req := c.Request
	ctx, span := telemetry.StartSpan(req.Context(), "proxy.forward")
	defer span.End()

	targetURL := joinURL(targetBaseURL, path)
	if req.URL.RawQuery != "" {
		targetURL = targetURL + "?" + req.URL.RawQuery
	}

	span.SetAttributes(
		attribute.String("proxy.service", serviceName),
		attribute.String("http.method", req.Method),
		attribute.String("http.url", targetURL),
	)

	headers := outboundHeaders(req.Header, extraHeaders)
	telemetry.InjectTraceContext(ctx, headers)

	// Buffer the body before the retry loop: a streaming body is not
	// re-playable across attempts.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			span.SetStatus(codes.Error, "failed to read request body")
			return nil, gwerr.New("Failed to read request body")
		}
	}

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		p.log.Debug("proxy request attempt",
			zap.String("service", serviceName),
			zap.String("method", req.Method),
			zap.String("url", targetURL),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
		)

		result, err := p.attempt(ctx, req.Method, targetURL, headers, body)
		switch classify(err) {
		case outcomeSuccess:
			p.log.Info("proxy request success",
				zap.String("service", serviceName),
				zap.String("method", req.Method),
				zap.Int("status_code", result.StatusCode),
				zap.Int("attempt", attempt),
			)
			span.SetStatus(codes.Ok, "")
			return result, nil

		case outcomeConnectFailed:
			lastErr = err
			backoff := time.Duration(attempt) * p.cfg.BackoffInterval

			p.log.Warn("proxy connection failed",
				zap.String("service", serviceName),
				zap.String("method", req.Method),
				zap.String("url", targetURL),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)

			if attempt < maxRetries {
				if sleepErr := p.sleep(ctx, backoff); sleepErr != nil {
					span.SetStatus(codes.Error, "canceled during backoff")
					return nil, gwerr.ServiceUnavailable(
						fmt.Sprintf("Service %s is unavailable after %d retries", serviceName, attempt))
				}
			}

		case outcomeTimedOut:
			p.log.Error("proxy timeout",
				zap.String("service", serviceName),
				zap.String("method", req.Method),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return nil, gwerr.GatewayTimeout(fmt.Sprintf("Timeout while requesting %s", serviceName))

		case outcomeProtocolError:
			p.log.Error("proxy transport error",
				zap.String("service", serviceName),
				zap.String("method", req.Method),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport error")
			return nil, err
		}
	}

	p.log.Error("proxy retries exhausted",
		zap.String("service", serviceName),
		zap.String("method", req.Method),
		zap.String("url", targetURL),
		zap.Int("max_retries", maxRetries),
		zap.Error(lastErr),
	)
	span.SetStatus(codes.Error, "retries exhausted")
	return nil, gwerr.ServiceUnavailable(
		fmt.Sprintf("Service %s is unavailable after %d retries", serviceName, maxRetries))
}

// attempt executes a single outbound exchange and buffers the response.
func (p *Client) attempt(ctx context.Context, method, targetURL string, headers http.Header, body []byte) (*Result, error) {
	outReq, err := http.NewRequestWithContext(ctx, method, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	outReq.Header = headers.Clone()

	resp, err := p.httpClient.Do(outReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The body is fully buffered by now, so these transport headers would be
	// stale for the downstream client.
	respHeader := resp.Header.Clone()
	respHeader.Del("Content-Encoding")
	respHeader.Del("Transfer-Encoding")

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     respHeader,
		Body:       respBody,
	}, nil
}

// outboundHeaders copies the inbound headers minus the hop-by-hop ones and
// overlays the gateway-injected extras.
func outboundHeaders(inbound http.Header, extra map[string]string) http.Header {
	headers := inbound.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Del("Host")
	headers.Del("Content-Length")

	for key, value := range extra {
		headers.Set(key, value)
	}
	return headers
}

// joinURL concatenates a base URL and a path with exactly one slash.
func joinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return base + "/" + path
}

// sleepContext waits out d or returns early when ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
