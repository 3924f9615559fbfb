package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"project-review-api/internal/config"
)

var RedisClient *redis.Client

// InitRedis connects the shared Redis client used for per-project locks.
// A redis:// URL takes precedence over the addr/password/db fields.
func InitRedis(cfg *config.Config, log *zap.Logger) error {
	var client *redis.Client

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	RedisClient = client
	log.Info("Redis connection established successfully",
		zap.String("addr", cfg.Redis.Addr),
		zap.Int("db", cfg.Redis.DB))
	return nil
}

// GetRedis returns the shared client, or nil when Redis was never
// initialized. Callers treat a nil client as "locking disabled".
func GetRedis() *redis.Client {
	return RedisClient
}
