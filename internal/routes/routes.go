package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/auth"
	"github.com/shopmesh/api-gateway/internal/config"
	"github.com/shopmesh/api-gateway/internal/middleware"
	"github.com/shopmesh/api-gateway/internal/proxy"
)

// Service names used for log fields and error details.
const (
	authService    = "auth-service"
	productService = "product-service"
	cartService    = "cart-service"
	orderService   = "order-service"
)

// Router registers the public API surface and forwards each request to the
// backend service that owns the resource.
type Router struct {
	proxy     *proxy.Client
	validator *auth.Validator
	services  config.ServicesConfig
}

func NewRouter(p *proxy.Client, v *auth.Validator, services config.ServicesConfig) *Router {
	return &Router{
		proxy:     p,
		validator: v,
		services:  services,
	}
}

// Register mounts all resource route tables on the engine.
func (rt *Router) Register(r *gin.Engine) {
	rt.registerAuth(r)
	rt.registerProducts(r)
	rt.registerCategories(r)
	rt.registerUsers(r)
	rt.registerCart(r)
	rt.registerOrders(r)
}

// requireUser returns the bearer-token guard for authenticated routes.
func (rt *Router) requireUser() gin.HandlerFunc {
	return middleware.RequireUser(rt.validator)
}

// forward proxies the current request to targetBaseURL+path and writes the
// backend response through. Failures are attached to the gin context and
// rendered by the error surface middleware.
func (rt *Router) forward(c *gin.Context, targetBaseURL, path, serviceName string, extraHeaders map[string]string) {
	result, err := rt.proxy.Forward(c, targetBaseURL, path, serviceName, extraHeaders, 0)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	result.Write(c)
}

// identityHeaders builds the trusted headers injected on authenticated
// routes: the caller's verified identity plus the request ID so backends can
// correlate their logs with the gateway's.
func identityHeaders(c *gin.Context) map[string]string {
	headers := middleware.GetClaims(c).ProxyHeaders()
	if id := middleware.GetRequestID(c); id != "" {
		headers[middleware.RequestIDHeader] = id
	}
	return headers
}

// passthroughHeaders is the public-route counterpart of identityHeaders:
// only the request ID travels upstream.
func passthroughHeaders(c *gin.Context) map[string]string {
	headers := map[string]string{}
	if id := middleware.GetRequestID(c); id != "" {
		headers[middleware.RequestIDHeader] = id
	}
	return headers
}
