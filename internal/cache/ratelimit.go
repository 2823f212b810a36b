package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	authLimitPrefix = "ratelimit:auth:"
	authLimitTTL    = 2 * time.Minute
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucketScript refills and takes one token atomically.
// KEYS[1] bucket; ARGV rate/s, capacity, now (unix s), ttl (s).
// Returns {allowed, retry_after_s, tokens_left}.
var bucketScript = redis.NewScript(`
local rate, capacity, now, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now

tokens = math.min(capacity, tokens + math.max(0, now - ts) * rate)

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, wait, math.floor(tokens)}
`)

// CheckAuthRateLimit takes one token from the client's register/login
// bucket. Buckets are keyed by a hash so raw addresses never reach Redis.
// Redis failures fail open.
func (c *Cache) CheckAuthRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return c.unlimited(burst), nil
	}

	now := c.now()
	perSecond := float64(ratePerMinute) / 60
	out, err := bucketScript.Run(ctx, c.client,
		[]string{authLimitPrefix + hashIP(ip)},
		perSecond, burst, now.Unix(), int(authLimitTTL.Seconds()),
	).Int64Slice()
	if err != nil || len(out) != 3 {
		return c.unlimited(burst), nil
	}

	return &RateLimitResult{
		Allowed:    out[0] == 1,
		Remaining:  out[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / perSecond)),
		RetryAfter: time.Duration(out[1]) * time.Second,
	}, nil
}

func (c *Cache) unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   c.now().Add(time.Minute),
	}
}

// hashIP returns the first 8 bytes of SHA-256(ip) as hex.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
