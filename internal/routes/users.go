package routes

import "github.com/gin-gonic/gin"

// registerUsers mounts the current-user profile routes. Both require a valid
// access token; the backend resolves "me" from the injected identity headers.
//
//	GET   /api/users/me -> auth-service GET   api/v1/users/me
//	PATCH /api/users/me -> auth-service PATCH api/v1/users/me
func (rt *Router) registerUsers(r *gin.Engine) {
	group := r.Group("/api/users", rt.requireUser())

	group.GET("/me", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/users/me", authService, identityHeaders(c))
	})

	group.PATCH("/me", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/users/me", authService, identityHeaders(c))
	})
}
