package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/loginguard/internal/auth"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAdminRateLimit returns the limit applied per administrator token
func DefaultAdminRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
	}
}

// DefaultOpsRateLimit returns the limit applied per client address on the public endpoints
func DefaultOpsRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
	}
}

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	pkghttp.WriteTooManyRequests(w, "rate limit exceeded")
}

// RateLimitByIP limits requests by the resolved client address.
// Only forwarding headers from trusted proxies are considered.
func RateLimitByIP(config RateLimitConfig, resolver *pkghttp.IPResolver) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return resolver.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitBySubject limits requests per token subject. Must run after auth.Authenticate.
func RateLimitBySubject(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "sub:" + auth.Actor(r), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByIdentity limits requests per token subject and login identity, so a burst
// against one account leaves every other account untouched. Must run after auth.Authenticate.
// identity must not fail; an unreadable request maps to the empty identity and is
// rejected downstream.
func RateLimitByIdentity(config RateLimitConfig, identity func(r *http.Request) string) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return "sub:" + auth.Actor(r) + "|id:" + identity(r), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}
