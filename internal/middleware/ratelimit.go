// Package middleware holds echo middleware shared by the realtime and HTTP
// routes.
package middleware

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
	    tokens = capacity
	    last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
	    local elapsed = math.max(0, now_ms - last_refill)
	    local intervals = math.floor(elapsed / interval_ms)
	    if intervals > 0 then
	        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
	        last_refill = last_refill + (intervals * interval_ms)
	    end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
	    allowed = 1
	    tokens = tokens - 1
	else
	    local until_next = interval_ms - (now_ms - last_refill)
	    if until_next < 0 then until_next = 0 end
	    retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// bucketResult is the decoded reply of tokenBucketScript.
type bucketResult struct {
	allowed   bool
	remaining int64
	retryMs   int64
}

// NewTokenBucket limits requests per key with a token bucket kept in Redis.
// The refill and take happen inside one Lua script so concurrent server
// instances share a consistent bucket.  When the limiter is disabled, Redis
// is absent, or the script fails, requests pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := takeToken(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] key=%s: %v", key, err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(res.retryMs) / 1000.0))
			if secs < 0 {
				secs = 0
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				c.Logger().Infof("[ratelimit] block key=%s retry=%dms", key, res.retryMs)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

func takeToken(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketResult, error) {
	vals, err := tokenBucketScript.Run(ctx, rdb, []string{key},
		time.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(vals) != 3 {
		return bucketResult{}, errUnexpectedReply
	}
	return bucketResult{allowed: vals[0] == 1, remaining: vals[1], retryMs: vals[2]}, nil
}

var errUnexpectedReply = errors.New("unexpected token bucket reply")

// buildRateKey derives the bucket key.  Viewers are anonymous, so buckets
// are keyed by client IP and/or route.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "route":
		parts = append(parts, "route", route)
	default:
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}
