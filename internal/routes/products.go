package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/middleware"
)

// registerProducts mounts the product catalog. Reads are public, writes are
// admin-only and carry the verified identity headers upstream.
//
//	GET    /api/products     -> product-service GET    api/v1/products
//	GET    /api/products/:id -> product-service GET    api/v1/products/{id}
//	POST   /api/products     -> product-service POST   api/v1/products      (admin)
//	PATCH  /api/products/:id -> product-service PATCH  api/v1/products/{id} (admin)
//	DELETE /api/products/:id -> product-service DELETE api/v1/products/{id} (admin)
func (rt *Router) registerProducts(r *gin.Engine) {
	group := r.Group("/api/products")

	group.GET("", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/products", productService, passthroughHeaders(c))
	})

	group.GET("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/products/"+c.Param("id"), productService, passthroughHeaders(c))
	})

	admin := group.Group("", rt.requireUser(), middleware.RequireAdmin())

	admin.POST("", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/products", productService, identityHeaders(c))
	})

	admin.PATCH("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/products/"+c.Param("id"), productService, identityHeaders(c))
	})

	admin.DELETE("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/products/"+c.Param("id"), productService, identityHeaders(c))
	})
}
