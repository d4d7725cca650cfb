package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/zap"
)


// Limiter applies a per client token bucket. It fails open: when redis is
// down the request is allowed and the error is only logged.
type Limiter struct {
	log    *zap.Logger
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLimiter(cfg config.Config, client redis.UniversalClient, log *zap.Logger) *Limiter {
	l := &Limiter{
		log:   log.Named("ratelimit"),
		rate:  float64(cfg.Redis.RateLimit),
		burst: cfg.Redis.Burst,
	}
	if client != nil && l.rate > 0 && l.burst > 0 {
		l.bucket = NewTokenBucket(client)
	}
	return l
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether the client identified by key may proceed within
// scope, and how long it should wait otherwise.
func (l *Limiter) Allow(ctx context.Context, scope, key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}
	res, err := l.bucket.Allow(ctx, bucketKey(scope, key), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, allowing", zap.String("scope", scope), zap.Error(err))
		return true, 0
	}
	return res.Allowed, res.RetryAfter
}

func bucketKey(scope, key string) string {
	return "ratelimit:" + scope + ":" + key
}
