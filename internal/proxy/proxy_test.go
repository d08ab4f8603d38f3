package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopmesh/api-gateway/internal/gwerr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// sleepRecorder replaces the backoff sleep so retry tests neither wait nor
// depend on wall-clock timing.
type sleepRecorder struct {
	durations []time.Duration
	onSleep   func(call int)
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	if s.onSleep != nil {
		s.onSleep(len(s.durations))
	}
	return nil
}

func newTestClient(t *testing.T) (*Client, *sleepRecorder) {
	t.Helper()
	client := NewClient(Config{
		ConnectTimeout:  time.Second,
		ReadTimeout:     100 * time.Millisecond,
		BackoffInterval: 500 * time.Millisecond,
	}, zap.NewNop())
	client.Start()
	t.Cleanup(client.Close)

	rec := &sleepRecorder{}
	client.sleep = rec.sleep
	return client, rec
}

func newForwardContext(t *testing.T, method, target, body string) *gin.Context {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	return c
}

// freeAddr reserves a TCP address that currently has no listener.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestForward_Success(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Backend", "product")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer backend.Close()

	client, rec := newTestClient(t)

	c := newForwardContext(t, http.MethodPost, "/api/products?page=2&limit=10", `{"name":"x"}`)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("X-User-Role", "admin") // spoof attempt from the client
	c.Request.Header.Set("Content-Length", "999")

	result, err := client.Forward(c, backend.URL+"/", "/api/v1/products", "product-service", map[string]string{
		"X-User-ID":   "user-1",
		"X-User-Role": "user",
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"id":42}`, string(result.Body))
	assert.Equal(t, "product", result.Header.Get("X-Backend"))

	require.NotNil(t, got)
	assert.Equal(t, "/api/v1/products", got.URL.Path)
	assert.Equal(t, "page=2&limit=10", got.URL.RawQuery)
	assert.Equal(t, `{"name":"x"}`, string(gotBody))

	// Injected identity wins over the spoofed inbound header, and the
	// transport recomputes Host and Content-Length.
	assert.Equal(t, "user", got.Header.Get("X-User-Role"))
	assert.Equal(t, "user-1", got.Header.Get("X-User-ID"))
	assert.NotEqual(t, "999", got.Header.Get("Content-Length"))
	assert.Equal(t, strings.TrimPrefix(backend.URL, "http://"), got.Host)

	assert.Empty(t, rec.durations, "no retries on success")
}

func TestForward_BackendErrorStatusPassesThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
	}))
	defer backend.Close()

	client, rec := newTestClient(t)
	c := newForwardContext(t, http.MethodGet, "/api/products/99", "")

	result, err := client.Forward(c, backend.URL, "api/v1/products/99", "product-service", nil, 0)
	require.NoError(t, err, "a received response is a success whatever its status")
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, `{"detail":"Product not found"}`, string(result.Body))
	assert.Empty(t, rec.durations)
}

func TestForward_RetriesConnectFailureThenSucceeds(t *testing.T) {
	addr := freeAddr(t)

	client, rec := newTestClient(t)

	// Bring the backend up during the second backoff, as if it had just
	// restarted.
	var gotBody atomic.Value
	rec.onSleep = func(call int) {
		if call != 2 {
			return
		}
		ln, err := net.Listen("tcp", addr)
		require.NoError(t, err)
		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotBody.Store(string(b))
			w.WriteHeader(http.StatusCreated)
		})}
		go func() { _ = srv.Serve(ln) }()
		t.Cleanup(func() { _ = srv.Close() })
	}

	c := newForwardContext(t, http.MethodPost, "/api/orders", `{"address":"1 Main St"}`)
	result, err := client.Forward(c, "http://"+addr, "api/v1/orders", "order-service", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)

	// The buffered body is replayed intact on the attempt that finally
	// reaches the backend.
	assert.Equal(t, `{"address":"1 Main St"}`, gotBody.Load())

	// Two failed attempts, linearly growing backoffs, success on the third.
	require.Len(t, rec.durations, 2)
	assert.Equal(t, 500*time.Millisecond, rec.durations[0])
	assert.Equal(t, 1000*time.Millisecond, rec.durations[1])
}

func TestForward_ExhaustsRetries(t *testing.T) {
	addr := freeAddr(t)

	client, rec := newTestClient(t)
	c := newForwardContext(t, http.MethodGet, "/api/orders", "")

	result, err := client.Forward(c, "http://"+addr, "api/v1/orders", "order-service", nil, 3)
	require.Error(t, err)
	assert.Nil(t, result)

	gwErr, ok := gwerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerr.KindServiceUnavailable, gwErr.Kind)
	assert.Equal(t, "Service order-service is unavailable after 3 retries", gwErr.Detail)

	// Linear backoff between attempts, none after the last one.
	require.Len(t, rec.durations, 2)
	assert.Equal(t, 500*time.Millisecond, rec.durations[0])
	assert.Equal(t, 1000*time.Millisecond, rec.durations[1])
}

func TestForward_TimeoutFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(300 * time.Millisecond) // past the 100ms read deadline
	}))
	defer backend.Close()

	client, rec := newTestClient(t)
	c := newForwardContext(t, http.MethodGet, "/api/products", "")

	result, err := client.Forward(c, backend.URL, "api/v1/products", "product-service", nil, 3)
	require.Error(t, err)
	assert.Nil(t, result)

	gwErr, ok := gwerr.As(err)
	require.True(t, ok)
	assert.Equal(t, gwerr.KindGatewayTimeout, gwErr.Kind)
	assert.Equal(t, "Timeout while requesting product-service", gwErr.Detail)

	assert.Equal(t, int32(1), hits.Load(), "timeouts are not retried")
	assert.Empty(t, rec.durations)
}

func TestForward_StripsStaleTransportHeaders(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write([]byte("plain"))
	}))
	defer backend.Close()

	client, _ := newTestClient(t)
	c := newForwardContext(t, http.MethodGet, "/api/products", "")

	result, err := client.Forward(c, backend.URL, "api/v1/products", "product-service", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Header.Get("Content-Encoding"))
	assert.Empty(t, result.Header.Get("Transfer-Encoding"))
	assert.Equal(t, "plain", string(result.Body))
}

func TestResultWrite(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	result := &Result{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"X-Backend": []string{"order"}},
		Body:       []byte(`{"ok":true}`),
	}
	result.Write(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "order", w.Header().Get("X-Backend"))
	// Content-Type defaults to JSON when the backend omitted it.
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, w.Body.String())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, outcomeSuccess, classify(nil))
	assert.Equal(t, outcomeConnectFailed, classify(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.Equal(t, outcomeTimedOut, classify(context.DeadlineExceeded))
	assert.Equal(t, outcomeTimedOut, classify(os.ErrDeadlineExceeded))
	assert.Equal(t, outcomeProtocolError, classify(errors.New("malformed response")))
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://svc:8001", "api/v1/auth", "http://svc:8001/api/v1/auth"},
		{"http://svc:8001/", "api/v1/auth", "http://svc:8001/api/v1/auth"},
		{"http://svc:8001", "/api/v1/auth", "http://svc:8001/api/v1/auth"},
		{"http://svc:8001/", "/api/v1/auth", "http://svc:8001/api/v1/auth"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinURL(tt.base, tt.path))
	}
}

func TestOutboundHeaders(t *testing.T) {
	inbound := http.Header{}
	inbound.Set("Host", "gateway.local")
	inbound.Set("Content-Length", "42")
	inbound.Set("Accept", "application/json")
	inbound.Set("X-User-ID", "spoofed")

	headers := outboundHeaders(inbound, map[string]string{"X-User-ID": "real-user"})

	assert.Empty(t, headers.Get("Host"))
	assert.Empty(t, headers.Get("Content-Length"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, "real-user", headers.Get("X-User-ID"))

	// The inbound header set is untouched.
	assert.Equal(t, "spoofed", inbound.Get("X-User-ID"))
}
