package routes

import "github.com/gin-gonic/gin"

// registerCart mounts the shopping cart. Every route requires a valid access
// token: the cart service keys carts by the injected user ID.
//
//	GET    /api/cart           -> cart-service GET    api/v1/cart
//	DELETE /api/cart           -> cart-service DELETE api/v1/cart
//	POST   /api/cart/items     -> cart-service POST   api/v1/cart/items
//	PATCH  /api/cart/items/:id -> cart-service PATCH  api/v1/cart/items/{id}
//	DELETE /api/cart/items/:id -> cart-service DELETE api/v1/cart/items/{id}
func (rt *Router) registerCart(r *gin.Engine) {
	group := r.Group("/api/cart", rt.requireUser())

	group.GET("", func(c *gin.Context) {
		rt.forward(c, rt.services.CartServiceURL, "api/v1/cart", cartService, identityHeaders(c))
	})

	group.DELETE("", func(c *gin.Context) {
		rt.forward(c, rt.services.CartServiceURL, "api/v1/cart", cartService, identityHeaders(c))
	})

	group.POST("/items", func(c *gin.Context) {
		rt.forward(c, rt.services.CartServiceURL, "api/v1/cart/items", cartService, identityHeaders(c))
	})

	group.PATCH("/items/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.CartServiceURL, "api/v1/cart/items/"+c.Param("id"), cartService, identityHeaders(c))
	})

	group.DELETE("/items/:id", func(c *gin.Context) {
		rt.forward(c, rt.services.CartServiceURL, "api/v1/cart/items/"+c.Param("id"), cartService, identityHeaders(c))
	})
}
