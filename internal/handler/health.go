// Package handler contains the gateway's own endpoints, everything else is
// proxied.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServiceHealth is the probe result for one backend.
type ServiceHealth struct {
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	Healthy        bool    `json:"healthy"`
	ResponseTimeMS float64 `json:"response_time_ms"`
	Error          string  `json:"error,omitempty"`
}

// Backend names one probed service.
type Backend struct {
	Name    string
	BaseURL string
}

// HealthHandler serves the gateway liveness endpoint and the parallel
// backend health fan-out. It is constructed once at startup with an
// explicit reference to the shared pooled HTTP client.
type HealthHandler struct {
	client   *http.Client
	backends []Backend
	timeout  time.Duration
	log      *zap.Logger
}

// NewHealthHandler creates a HealthHandler probing the given backends
// through the shared client.
func NewHealthHandler(client *http.Client, backends []Backend, log *zap.Logger) *HealthHandler {
	return &HealthHandler{
		client:   client,
		backends: backends,
		timeout:  5 * time.Second,
		log:      log,
	}
}

// Health returns the static liveness payload.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api-gateway",
	})
}

// Services probes every backend's /health in parallel and reports
// per-service availability with response times.
func (h *HealthHandler) Services(c *gin.Context) {
	results := h.checkAll(c.Request.Context())

	status := "healthy"
	for _, r := range results {
		if !r.Healthy {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"services": results,
	})
}

func (h *HealthHandler) checkAll(ctx context.Context) []ServiceHealth {
	results := make([]ServiceHealth, len(h.backends))
	var wg sync.WaitGroup

	for i, backend := range h.backends {
		wg.Add(1)
		go func(i int, backend Backend) {
			defer wg.Done()
			results[i] = h.checkService(ctx, backend)
		}(i, backend)
	}

	wg.Wait()
	return results
}

func (h *HealthHandler) checkService(ctx context.Context, backend Backend) ServiceHealth {
	url := fmt.Sprintf("%s/health", backend.BaseURL)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	health := ServiceHealth{Name: backend.Name, URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		health.ResponseTimeMS = elapsedMS(start)
		health.Error = err.Error()
		return health
	}

	resp, err := h.client.Do(req)
	health.ResponseTimeMS = elapsedMS(start)
	if err != nil {
		health.Error = err.Error()
		h.log.Warn("service health check failed",
			zap.String("service", backend.Name),
			zap.String("url", url),
			zap.Error(err),
			zap.Float64("duration_ms", health.ResponseTimeMS),
		)
		return health
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		health.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		h.log.Warn("service health check failed",
			zap.String("service", backend.Name),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Float64("duration_ms", health.ResponseTimeMS),
		)
		return health
	}

	health.Healthy = true
	return health
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
