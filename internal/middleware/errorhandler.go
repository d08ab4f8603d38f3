package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopmesh/api-gateway/internal/gwerr"
)

// ErrorResponse is the stable external error envelope. RequestID is null
// when no correlation id was attached to the request.
type ErrorResponse struct {
	Detail    string  `json:"detail"`
	RequestID *string `json:"request_id"`
}

// ErrorHandler returns the error surface: the single middleware that maps
// classified gateway errors attached by route handlers to wire responses.
// Unclassified failures are logged with full detail and surfaced with a
// generic message so internals never leak.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		requestID := GetRequestID(c)

		gwErr, ok := gwerr.As(err)
		if !ok {
			log.Error("unhandled error",
				zap.Error(err),
				zap.String("request_id", requestID),
			)
			writeError(c, http.StatusInternalServerError,
				"Internal server error. Please report this ID to support.", requestID)
			return
		}

		log.Error("gateway error",
			zap.String("kind", gwErr.Kind.String()),
			zap.String("detail", gwErr.Detail),
			zap.String("request_id", requestID),
		)

		switch gwErr.Kind {
		case gwerr.KindAuthentication:
			c.Header("WWW-Authenticate", "Bearer")
			writeError(c, http.StatusUnauthorized, gwErr.Detail, requestID)
		case gwerr.KindForbidden:
			writeError(c, http.StatusForbidden, gwErr.Detail, requestID)
		case gwerr.KindGatewayTimeout:
			writeError(c, http.StatusGatewayTimeout, gwErr.Detail, requestID)
		case gwerr.KindServiceUnavailable:
			c.Header("Retry-After", "30")
			writeError(c, http.StatusServiceUnavailable, gwErr.Detail, requestID)
		default:
			writeError(c, http.StatusBadRequest, gwErr.Detail, requestID)
		}
	}
}

// Recovery returns a middleware that turns panics into the generic 500
// envelope after logging the full detail.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", requestID),
		)
		writeError(c, http.StatusInternalServerError,
			"Internal server error. Please report this ID to support.", requestID)
		c.Abort()
	})
}

func writeError(c *gin.Context, status int, detail, requestID string) {
	var id *string
	if requestID != "" {
		id = &requestID
	}
	c.JSON(status, ErrorResponse{Detail: detail, RequestID: id})
}
