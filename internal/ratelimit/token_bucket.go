// Package ratelimit implements a per-firm token bucket over redis for
// the voice webhook. The limiter is optional; with no redis configured
// every request is allowed.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/firmline/firmline/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// tokenBucketScript refills lazily on access and answers allow/deny in
// one round trip. KEYS[1] bucket key, ARGV: rate per second, burst,
// now (unix micros).
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', key, 'tokens', 'updated')
local tokens = tonumber(bucket[1])
local updated = tonumber(bucket[2])

if tokens == nil then
  tokens = burst
  updated = now
end

local elapsed = math.max(0, now - updated) / 1000000.0
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'updated', now)
redis.call('EXPIRE', key, math.ceil(burst / rate) * 2 + 60)

return allowed
`)

// Limiter answers whether a firm may make another webhook call now.
type Limiter interface {
	Allow(ctx context.Context, firmKey string) (bool, error)
}

type redisLimiter struct {
	client *redis.Client
	rate   float64
	burst  int
	log    *zap.Logger
}

func (l *redisLimiter) Allow(ctx context.Context, firmKey string) (bool, error) {
	key := fmt.Sprintf("ratelimit:intake:%s", firmKey)
	now := time.Now().UnixMicro()
	res, err := tokenBucketScript.Run(ctx, l.client, []string{key}, l.rate, l.burst, now).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// noopLimiter allows everything. Used when rate limiting is disabled.
type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// NewNoop returns a limiter that allows every request.
func NewNoop() Limiter {
	return noopLimiter{}
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	LC     fx.Lifecycle
}

func New(p Params) Limiter {
	rl := p.Config.RateLimit
	if !rl.Enabled || rl.RedisAddr == "" {
		return noopLimiter{}
	}

	// The script divides by rate when computing the key TTL, so both
	// knobs are clamped to sane floors here.
	rate := rl.FirmRate
	if rate <= 0 {
		rate = 1
	}
	burst := rl.FirmBurst
	if burst < 1 {
		burst = 1
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rl.RedisAddr,
		Password: rl.RedisPassword,
		DB:       rl.RedisDB,
	})
	p.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	p.Log.Named("ratelimit").Info("redis rate limiter enabled",
		zap.String("addr", rl.RedisAddr),
		zap.Float64("rate", rate),
		zap.Int("burst", burst),
	)
	return &redisLimiter{
		client: client,
		rate:   rate,
		burst:  burst,
		log:    p.Log.Named("ratelimit"),
	}
}

var Module = fx.Module("ratelimit", fx.Provide(New))
