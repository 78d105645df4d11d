package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds failed-login throttle parameters.
type Config struct {
	Prefix           string
	MaxFailures      int
	Window           time.Duration
	EnableIPThrottle bool
}

// DefaultConfig allows five failures per email within fifteen minutes.
func DefaultConfig() Config {
	return Config{
		Prefix:           "opsauth:stub",
		MaxFailures:      5,
		Window:           15 * time.Minute,
		EnableIPThrottle: true,
	}
}

// Limiter counts failed logins in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New returns a [Limiter] backed by redisClient.
func New(redisClient redis.UniversalClient, cfg Config) (*Limiter, error) {
	if redisClient == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if cfg.MaxFailures < 1 || cfg.Window <= 0 {
		return nil, errors.New("rate limiter requires MaxFailures >= 1 and a positive Window")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	return &Limiter{redis: redisClient, config: cfg}, nil
}

// Allow returns ErrRateLimited when email or ip has exhausted its budget.
func (l *Limiter) Allow(ctx context.Context, email, ip string) error {
	keys := l.keys(email, ip)
	counts, err := l.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	for _, raw := range counts {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var n int64
		if _, err := fmt.Sscan(s, &n); err != nil {
			continue
		}
		if n >= int64(l.config.MaxFailures) {
			return ErrRateLimited
		}
	}
	return nil
}

// Fail records one failed attempt for email and ip.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		if err := l.incrementWithTTL(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Failures returns the current failure count for email.
func (l *Limiter) Failures(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.emailKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{l.emailKey(email)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, l.config.Prefix+":lfi:"+ip)
	}
	return keys
}

func (l *Limiter) emailKey(email string) string {
	return l.config.Prefix + ":lf:" + strings.ToLower(strings.TrimSpace(email))
}
