package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shopmesh/api-gateway/internal/auth"
	"github.com/shopmesh/api-gateway/internal/gwerr"
	"github.com/shopmesh/api-gateway/pkg/telemetry"
)

// ContextKeyClaims is the gin context key holding the validated identity.
const ContextKeyClaims = "identity_claims"

// RequireUser returns a middleware that guards protected routes: it extracts
// the bearer token, validates it and stores the identity claims in the
// request context. A missing credential is rejected before the validator is
// ever invoked.
func RequireUser(validator *auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWith(c, gwerr.Authentication("Not authenticated"))
			return
		}

		_, span := telemetry.StartSpan(c.Request.Context(), "auth.validate")
		claims, err := validator.Validate(token)
		span.End()
		if err != nil {
			abortWith(c, err)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAdmin returns a middleware for admin-gated routes. It must run
// after RequireUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abortWith(c, gwerr.Authentication("Not authenticated"))
			return
		}
		if err := auth.RequireAdmin(claims); err != nil {
			abortWith(c, err)
			return
		}
		c.Next()
	}
}

// GetClaims returns the identity claims stored by RequireUser, or nil.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ContextKeyClaims); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
