// Package auth establishes caller identity from signed bearer tokens.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shopmesh/api-gateway/internal/gwerr"
)

// Token types. Only access tokens authorize resource access; refresh tokens
// are valid solely for obtaining new access tokens and are always rejected
// here.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Roles carried in the token payload. Role is authoritative for admin-gated
// operations.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity propagation headers injected on forwarded requests.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// Claims is the decoded token payload: subject id, email, role and token
// type on top of the registered issued-at/expiry claims. Constructed fresh
// per request and never persisted.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// ProxyHeaders returns the identity headers to inject on a forwarded
// request. The forwarding engine gives these precedence over any same-named
// inbound header, so spoofed X-User-* values never reach a backend.
func (c *Claims) ProxyHeaders() map[string]string {
	return map[string]string{
		HeaderUserID:    c.Subject,
		HeaderUserEmail: c.Email,
		HeaderUserRole:  c.Role,
	}
}

// Validator verifies signed access tokens against a single configured
// symmetric secret and algorithm. There is no key rotation and no
// multi-algorithm negotiation.
type Validator struct {
	secret []byte
	method string
}

// NewValidator creates a Validator for the given HMAC secret and algorithm
// name (e.g. "HS256").
func NewValidator(secret, algorithm string) *Validator {
	return &Validator{
		secret: []byte(secret),
		method: algorithm,
	}
}

// Validate decodes and verifies a bearer token, returning the identity
// claims. It is a pure function of the token string and the configured
// secret. Any failure (bad signature, expired, malformed payload, wrong
// token type) is a classified authentication error.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{v.method}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, gwerr.Authentication("Token expired")
		}
		return nil, gwerr.Authentication("Invalid token")
	}
	if !token.Valid {
		return nil, gwerr.Authentication("Invalid token")
	}

	if claims.Subject == "" || claims.Email == "" || claims.Role == "" || claims.Type == "" || claims.IssuedAt == nil {
		return nil, gwerr.Authentication("Invalid token payload")
	}

	// Refresh tokens must never authorize resource access, regardless of
	// signature validity.
	if claims.Type != TokenTypeAccess {
		return nil, gwerr.Authentication("Token is not an access token")
	}

	return claims, nil
}

// RequireAdmin reports a forbidden error when the identity lacks the admin
// role. Used only by admin-gated routes.
func RequireAdmin(claims *Claims) error {
	if claims.Role != RoleAdmin {
		return gwerr.Forbidden("Admin access required")
	}
	return nil
}
