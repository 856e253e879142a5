package tokensource

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/soapproxy/internal/config"
	"github.com/turtacn/soapproxy/pkg/errors"
	"github.com/turtacn/soapproxy/pkg/logger"
)

// Redis reads the token stored under a key, typically written there by a
// separate STS client.
type Redis struct {
	rdb    redis.UniversalClient
	key    string
	logger logger.Logger
}

// NewRedis creates a Redis token source.
func NewRedis(rdb redis.UniversalClient, key string, log logger.Logger) *Redis {
	return &Redis{rdb: rdb, key: key, logger: logger.OrNoop(log)}
}

// NewRedisFromConfig connects to the server described by cfg.
func NewRedisFromConfig(cfg config.RedisConfig, log logger.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedis(client, cfg.Key, log)
}

// GetSecurityToken implements service.TokenSource. A missing key yields
// ErrTokenUnavailable.
func (r *Redis) GetSecurityToken(ctx context.Context) (string, error) {
	token, err := r.rdb.Get(ctx, r.key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", errors.ErrTokenUnavailable.WithMessage("token not found in redis").WithDetail("key", r.key)
	}
	if err != nil {
		r.logger.Error(ctx, "Failed to read token from redis", err, logger.Fields{"key": r.key})
		return "", errors.ErrTokenUnavailable.WithDetail("key", r.key).WithError(err)
	}
	return token, nil
}

// Store writes token under the source's key with the given lifetime. A
// non-positive ttl stores it without expiry.
func (r *Redis) Store(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.rdb.Set(ctx, r.key, token, ttl).Err()
}
