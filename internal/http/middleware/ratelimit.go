package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/starlow12/recipe/internal/ratelimit"
	"github.com/starlow12/recipe/internal/utils/response"
)

// Per-user budgets: publishing is expensive (media upload + fanout), views
// are cheap but frequent.
var actionLimits = map[string]int64{
	"stories": 20,
	"views":   60,
}

type RateLimitConfig struct {
	limiters map[string]*ratelimit.TokenBucket
}

func NewRateLimitConfig(redisClient *redis.Client) *RateLimitConfig {
	config := &RateLimitConfig{
		limiters: make(map[string]*ratelimit.TokenBucket),
	}

	for action, limit := range actionLimits {
		config.limiters[action] = ratelimit.NewTokenBucket(redisClient, limit, limit)
	}

	return config
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Assumes auth middleware ran first
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), userID, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), userID, action)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(actionLimits[action], 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitedHandler wraps a handler with rate limiting for a specific action
func (rlc *RateLimitConfig) RateLimitedHandler(action string, handler http.HandlerFunc) http.Handler {
	return rlc.RateLimitMiddleware(action)(http.HandlerFunc(handler))
}
