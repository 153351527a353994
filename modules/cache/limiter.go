package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit is a number of requests allowed per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// LimitResult is the outcome of a rate check.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// slidingWindow trims the window, counts it and admits the request when
// under the limit, in one round trip.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_ms)
		redis.call('PEXPIRE', counter_key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = oldest[2] + window_ms - now
	end
	return {0, 0, retry_after}
`)

// Allow records a request for key against limit. A disabled cache admits
// every request.
func (c *Cache) Allow(ctx context.Context, key string, limit Limit) (LimitResult, error) {
	now := time.Now()
	open := LimitResult{Allowed: true, Remaining: limit.Requests, ResetAt: now.Add(limit.Window)}

	client := c.conn()
	if client == nil || limit.Requests <= 0 {
		return open, nil
	}

	redisKey := c.prefix + "ratelimit:" + key
	result, err := slidingWindow.Run(ctx, client, []string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		now.Add(-limit.Window).UnixMilli(),
		limit.Requests,
		limit.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return open, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(result) < 3 {
		return open, fmt.Errorf("unexpected result length: %d", len(result))
	}

	allowed, ok1 := result[0].(int64)
	remaining, ok2 := result[1].(int64)
	retryMs, ok3 := result[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return open, fmt.Errorf("unexpected rate limit result: %v", result)
	}

	res := LimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetAt:   now.Add(limit.Window),
	}
	if !res.Allowed && retryMs > 0 {
		res.RetryAfter = time.Duration(retryMs) * time.Millisecond
	}
	return res, nil
}
