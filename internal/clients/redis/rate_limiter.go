package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/veralingo/veralingo-backend/internal/logger"
	"github.com/veralingo/veralingo-backend/internal/services"
)

// rateLimiter is the shared last-request-time store for advice requests.
// SET NX with a TTL makes the check-and-record atomic, so concurrent workers
// in different processes cannot both slip through the interval.
type rateLimiter struct {
	log      *logger.Logger
	rdb      *goredis.Client
	prefix   string
	interval time.Duration
}

func NewRateLimiter(log *logger.Logger, interval time.Duration) (services.RateLimiter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_RATE_LIMIT_PREFIX"))
	if prefix == "" {
		prefix = "advice:last"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &rateLimiter{
		log:      log.With("service", "RedisRateLimiter"),
		rdb:      rdb,
		prefix:   prefix,
		interval: interval,
	}, nil
}

func (l *rateLimiter) key(key string) string {
	return l.prefix + ":" + key
}

func (l *rateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(key), time.Now().UTC().Format(time.RFC3339), l.interval).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return ok, nil
}

func (l *rateLimiter) Mark(ctx context.Context, key string) error {
	if err := l.rdb.Set(ctx, l.key(key), time.Now().UTC().Format(time.RFC3339), l.interval).Err(); err != nil {
		return fmt.Errorf("rate limit mark: %w", err)
	}
	return nil
}
