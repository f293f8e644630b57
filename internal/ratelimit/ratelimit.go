package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBucket is a per-user, per-action rate limiter backed by Redis. The
// bucket state lives in a Redis hash so limits hold across service replicas.
type TokenBucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64 // tokens refilled per window
	window   time.Duration
}

func NewTokenBucket(redisClient *redis.Client, capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refillRate,
		window:   time.Minute,
	}
}

// Refill-and-consume must be atomic, so both steps run in one Lua script.
// ARGV[5] selects whether a token is consumed; GetRemaining reuses the same
// script with consumption off.
const bucketScript = `
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])
	local consume = tonumber(ARGV[5])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local elapsed = now - last_refill
	local refilled = math.floor((elapsed / window) * refill_rate)
	if refilled > 0 then
		tokens = math.min(capacity, tokens + refilled)
		last_refill = now
	end

	if consume == 0 then
		return tokens
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`

func bucketKey(userID, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", userID, action)
}

// Allow consumes a token if one is available and reports whether the action
// may proceed.
func (tb *TokenBucket) Allow(ctx context.Context, userID, action string) (bool, error) {
	result, err := tb.eval(ctx, userID, action, 1)
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result == 1, nil
}

// GetRemaining returns how many tokens the user has left for an action.
func (tb *TokenBucket) GetRemaining(ctx context.Context, userID, action string) (int64, error) {
	result, err := tb.eval(ctx, userID, action, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}
	return result, nil
}

// Reset clears the rate limit for a specific user action.
func (tb *TokenBucket) Reset(ctx context.Context, userID, action string) error {
	return tb.redis.Del(ctx, bucketKey(userID, action)).Err()
}

func (tb *TokenBucket) eval(ctx context.Context, userID, action string, consume int) (int64, error) {
	now := time.Now().Unix()
	result, err := tb.redis.Eval(ctx, bucketScript, []string{bucketKey(userID, action)},
		tb.capacity, tb.refill, int64(tb.window.Seconds()), now, consume).Result()
	if err != nil {
		return 0, err
	}

	value, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type from rate limit script")
	}
	return value, nil
}
