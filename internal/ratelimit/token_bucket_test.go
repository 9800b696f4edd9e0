package ratelimit

import (
	"context"
	"testing"

	"github.com/firmline/firmline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNew_DisabledReturnsNoop(t *testing.T) {
	limiter := New(Params{
		Config: config.Config{},
		Log:    zap.NewNop(),
		LC:     fxtest.NewLifecycle(t),
	})

	allowed, err := limiter.Allow(context.Background(), "firm-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNew_ClampsRateAndBurst(t *testing.T) {
	limiter := New(Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{
			Enabled:   true,
			RedisAddr: "localhost:6379",
		}},
		Log: zap.NewNop(),
		LC:  fxtest.NewLifecycle(t),
	})

	rl, ok := limiter.(*redisLimiter)
	require.True(t, ok)
	// Zero-valued knobs would divide by zero in the script's TTL math.
	assert.Equal(t, float64(1), rl.rate)
	assert.Equal(t, 1, rl.burst)
	require.NoError(t, rl.client.Close())
}
