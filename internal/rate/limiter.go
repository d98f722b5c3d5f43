package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds submission throttle tuning parameters.
type Config struct {
	Prefix                   string
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool
	MaxSubmissions           int
	Window                   time.Duration
}

// Limiter enforces per-identifier and per-IP submission budgets using Redis
// fixed-window counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "afr"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one submission for the identifier+IP pair and reports
// ErrRateLimited once either window exceeds MaxSubmissions.
func (l *Limiter) Allow(ctx context.Context, scope, identifier, ip string) error {
	if l == nil {
		return nil
	}

	if l.config.EnableIdentifierThrottle && identifier != "" {
		count, err := l.incrementWithTTL(ctx, l.identifierKey(scope, identifier))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxSubmissions) {
			return ErrRateLimited
		}
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err := l.incrementWithTTL(ctx, l.ipKey(scope, ip))
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxSubmissions) {
			return ErrRateLimited
		}
	}

	return nil
}

// Reset clears the identifier counter. Called after a successful sign-in.
func (l *Limiter) Reset(ctx context.Context, scope, identifier string) error {
	if l == nil || identifier == "" {
		return nil
	}
	if err := l.redis.Del(ctx, l.identifierKey(scope, identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for an identifier. Missing keys return zero.
func (l *Limiter) Attempts(ctx context.Context, scope, identifier string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.identifierKey(scope, identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) identifierKey(scope, identifier string) string {
	return l.config.Prefix + ":" + scope + ":id:" + strings.ToLower(strings.TrimSpace(identifier))
}

func (l *Limiter) ipKey(scope, ip string) string {
	return l.config.Prefix + ":" + scope + ":ip:" + ip
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
