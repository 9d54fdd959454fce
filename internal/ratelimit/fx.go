package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/talentgrid/campushire/internal/config"
)

// RedisClient wraps the optional redis connection. Client is nil when
// REDIS_ADDR is not configured; consumers degrade to single-instance
// behavior.
type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg config.Config) RedisClient {
	if cfg.RedisAddr == "" {
		return RedisClient{}
	}
	return RedisClient{
		Client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
	}
}

func NewSweepLocker(client RedisClient) *Locker {
	return NewLocker(client.Client)
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewSweepLocker),
	fx.Provide(NewRespondLimiter),
)
