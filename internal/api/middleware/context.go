package middleware

import "context"

type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	AuthClaimsKey ContextKey = "auth_claims"
)

const RequestIDHeader = "X-Request-Id"

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return "unknown"
}

// GetClaims returns the verified token claims, if the request carried any.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(AuthClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
