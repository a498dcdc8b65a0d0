package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 分散式令牌桶，狀態存在 redis hash: tokens / last_refill(ms)
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1])
	local lastRefill = tonumber(bucket[2])

	if tokens == nil then
		tokens = capacity
		lastRefill = now
	end

	local elapsed = math.max(0, now - lastRefill) / 1000
	tokens = math.min(capacity, tokens + elapsed * rate)

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(now))
	redis.call('EXPIRE', key, ttl)
	return allowed
`)

type Config struct {
	Capacity int
	// RatePerSec is how many tokens flow back into the bucket every second.
	RatePerSec float64
	Prefix     string
}

type TokenBucket struct {
	client redis.Scripter
	cfg    Config
	now    func() time.Time
}

func NewTokenBucket(client redis.Scripter, cfg Config) *TokenBucket {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 5
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	return &TokenBucket{client: client, cfg: cfg, now: time.Now}
}

// Allow takes one token from key's bucket. A redis failure is returned to the
// caller, who decides whether to fail open.
func (b *TokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	ttl := int(float64(b.cfg.Capacity)/b.cfg.RatePerSec) + 1
	result, err := tokenBucketScript.Run(
		ctx,
		b.client,
		[]string{fmt.Sprintf("%s:%s", b.cfg.Prefix, key)},
		b.cfg.Capacity,
		b.cfg.RatePerSec,
		b.now().UnixMilli(),
		ttl,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("token bucket %s: %w", key, err)
	}
	return result == 1, nil
}
