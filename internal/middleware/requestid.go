package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header carrying the correlation id.
	RequestIDHeader = "X-Request-ID"

	// ContextKeyRequestID is the gin context key for the correlation id.
	ContextKeyRequestID = "request_id"
)

// RequestID returns a middleware that attaches a correlation id to every
// request: an inbound X-Request-ID is honored, otherwise a fresh UUID is
// generated. The id is stored in the gin context and echoed in the response
// header; error responses include it in their envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextKeyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the correlation id attached to the request, or ""
// when the RequestID middleware did not run.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyRequestID); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
