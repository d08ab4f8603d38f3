// Package gwerr defines the gateway-level error taxonomy. Errors are
// constructed at the point of detection (token validation or forwarding)
// and propagate unmodified to the error surface middleware, which is the
// single place that maps them to a wire response.
package gwerr

import "errors"

// Kind classifies a gateway error for the error surface.
type Kind int

const (
	// KindGateway is the catch-all for classified gateway errors.
	KindGateway Kind = iota
	// KindAuthentication covers bad, expired, wrong-type or missing credentials.
	KindAuthentication
	// KindForbidden means a valid identity with insufficient role.
	KindForbidden
	// KindGatewayTimeout means a backend was reachable but exceeded its deadline.
	KindGatewayTimeout
	// KindServiceUnavailable means a backend was unreachable after all retries.
	KindServiceUnavailable
)

// String returns the kind name used in log fields.
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindGatewayTimeout:
		return "gateway_timeout"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "gateway"
	}
}

// Error is a classified gateway error with a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// New returns a generic classified gateway error.
func New(detail string) *Error {
	if detail == "" {
		detail = "API Gateway internal error"
	}
	return &Error{Kind: KindGateway, Detail: detail}
}

// Authentication returns an error for invalid, expired, wrong-type or
// missing credentials.
func Authentication(detail string) *Error {
	if detail == "" {
		detail = "Authentication failed"
	}
	return &Error{Kind: KindAuthentication, Detail: detail}
}

// Forbidden returns an error for a valid identity lacking the required role.
func Forbidden(detail string) *Error {
	if detail == "" {
		detail = "Forbidden"
	}
	return &Error{Kind: KindForbidden, Detail: detail}
}

// GatewayTimeout returns an error for a backend exchange that exceeded its
// deadline.
func GatewayTimeout(detail string) *Error {
	if detail == "" {
		detail = "Gateway timeout"
	}
	return &Error{Kind: KindGatewayTimeout, Detail: detail}
}

// ServiceUnavailable returns an error for a backend unreachable after all
// retry attempts.
func ServiceUnavailable(detail string) *Error {
	if detail == "" {
		detail = "Service unavailable"
	}
	return &Error{Kind: KindServiceUnavailable, Detail: detail}
}

// As unwraps err into a classified gateway error, reporting whether it is one.
func As(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
