package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/middleware"
)

// registerCategories mounts the category tree. Same split as products:
// public reads, admin-only writes.
//
//	GET    /api/categories                -> product-service GET    api/v1/categories
//	GET    /api/categories/:id            -> product-service GET    api/v1/categories/{id}
//	GET    /api/categories/:id/attributes -> product-service GET    api/v1/categories/{id}/attributes
//	POST   /api/categories                -> product-service POST   api/v1/categories      (admin)
//	PATCH  /api/categories/:id            -> product-service PATCH  api/v1/categories/{id} (admin)
//	DELETE /api/categories/:id            -> product-service DELETE api/v1/categories/{id} (admin)
func (rt *Router) registerCategories(r *gin.Engine) {
	group := r.Group("/api/categories")

	group.GET("", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories", productService, passthroughHeaders(c))
	})

	group.GET("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories/"+c.Param("id"), productService, passthroughHeaders(c))
	})

	group.GET("/:id/attributes", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories/"+c.Param("id")+"/attributes", productService, passthroughHeaders(c))
	})

	admin := group.Group("", rt.requireUser(), middleware.RequireAdmin())

	admin.POST("", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories", productService, identityHeaders(c))
	})

	admin.PATCH("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories/"+c.Param("id"), productService, identityHeaders(c))
	})

	admin.DELETE("/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.ProductServiceURL, "api/v1/categories/"+c.Param("id"), productService, identityHeaders(c))
	})
}
