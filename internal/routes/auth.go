package routes

import "github.com/gin-gonic/gin"

// registerAuth mounts the authentication flow. All of these are public: the
// auth service itself issues and revokes the tokens, the gateway only relays.
//
//	GET  /api/auth/google          -> auth-service GET  api/v1/auth/google
//	GET  /api/auth/google/callback -> auth-service GET  api/v1/auth/google/callback
//	POST /api/auth/refresh         -> auth-service POST api/v1/auth/refresh
//	POST /api/auth/logout          -> auth-service POST api/v1/auth/logout
func (rt *Router) registerAuth(r *gin.Engine) {
	group := r.Group("/api/auth")

	group.GET("/google", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/auth/google", authService, passthroughHeaders(c))
	})

	group.GET("/google/callback", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/auth/google/callback", authService, passthroughHeaders(c))
	})

	group.POST("/refresh", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/auth/refresh", authService, passthroughHeaders(c))
	})

	group.POST("/logout", func(c *gin.Context) {
		rt.forward(c, rt.services.AuthServiceURL, "api/v1/auth/logout", authService, passthroughHeaders(c))
	})
}
