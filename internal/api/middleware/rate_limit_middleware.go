package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/Fintoc-PepeStore2-0/Backend/internal/api/response"
	"github.com/rs/zerolog"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRateLimitMiddleware limits per authenticated user, falling back to the
// client address. A limiter failure lets the request through.
func NewRateLimitMiddleware(limiter Limiter, scope string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", scope, clientKey(r))
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("rate limiter unavailable, allowing request")
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				response.ErrorMessage(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if claims, ok := GetClaims(r.Context()); ok {
		return fmt.Sprintf("user:%d", claims.ID)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
