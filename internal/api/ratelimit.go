package api

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chipzone/server/internal/auth"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	rateLimitExceededJSON = `{"error":"Rate limit exceeded","message":"Too many requests. Please try again later.","retry_after":%d}`
)

func newLimiter(limit int, window time.Duration) *limiter.Limiter {
	return limiter.New(memory.NewStore(), limiter.Rate{
		Period: window,
		Limit:  int64(limit),
	})
}

// RateLimitMiddleware limits requests per client IP address.
func RateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	instance := newLimiter(limit, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enforceLimit(instance, getClientIP(r), w, r, next)
		})
	}
}

// UserRateLimitMiddleware limits requests per authenticated user, falling
// back to the client IP when the request carries no user.
func UserRateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	instance := newLimiter(limit, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)
			if userID, ok := auth.GetUserID(r); ok {
				key = fmt.Sprintf("user:%d", userID)
			}
			enforceLimit(instance, key, w, r, next)
		})
	}
}

func enforceLimit(instance *limiter.Limiter, key string, w http.ResponseWriter, r *http.Request, next http.Handler) {
	context, err := instance.Get(r.Context(), key)
	if err != nil {
		// Fail open on limiter errors.
		log.Printf("[RateLimit] Limiter error for %s: %v", key, err)
		next.ServeHTTP(w, r)
		return
	}

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

	if context.Reached {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)

		retryAfter := int(time.Until(time.Unix(context.Reset, 0)).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		if _, err := fmt.Fprintf(w, rateLimitExceededJSON, retryAfter); err != nil {
			log.Printf("[RateLimit] Error writing rate limit response: %v", err)
		}
		return
	}

	next.ServeHTTP(w, r)
}

// getClientIP extracts the client IP address from the request.
// Handles X-Forwarded-For header for proxied requests.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, the first is the client
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
