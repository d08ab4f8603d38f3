package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/middleware"
)

// registerOrders mounts order placement and history. Authenticated users see
// their own orders; the full listing is admin-only.
//
//	GET  /api/orders     -> order-service GET  api/v1/orders
//	POST /api/orders     -> order-service POST api/v1/orders
//	GET  /api/orders/all -> order-service GET  api/v1/orders/all (admin)
//	GET  /api/orders/:id -> order-service GET  api/v1/orders/{id}
func (rt *Router) registerOrders(r *gin.Engine) {
	group := r.Group("/api/orders", rt.requireUser())

	group.GET("", func(c *gin.Context) {
		rt.forward(c, rt.services.OrderServiceURL, "api/v1/orders", orderService, identityHeaders(c))
	})

	group.POST("", func(c *gin.Context) {
		rt.forward(c, rt.services.OrderServiceURL, "api/v1/orders", orderService, identityHeaders(c))
	})

	group.GET("/all", middleware.RequireAdmin(), func(c *gin.Context) {
		rt.forward(c, rt.services.OrderServiceURL, "api/v1/orders/all", orderService, identityHeaders(c))
	})

	group.GET("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.OrderServiceURL, "api/v1/orders/"+c.Param("id"), orderService, identityHeaders(c))
	})
}
