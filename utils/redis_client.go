package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yatube/yatube/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// NewRedisClient builds a client for cfg without contacting the server.
// It returns nil when cfg has no Redis host.
func NewRedisClient(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// GetRedis returns the shared client, or nil when Redis is not configured.
// Page cache and token revocation fall back to process memory in that case.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		redisClient = NewRedisClient(config.Get())
		if redisClient == nil {
			return
		}
		if err := PingRedis(context.Background()); err != nil {
			Sugar.Warnf("redis ping failed, cache reads will miss until it is reachable: %v", err)
		}
	})
	return redisClient
}

// PingRedis checks the shared client. A missing configuration is not an error.
func PingRedis(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return redisClient.Ping(ctx).Err()
}

// CloseRedis releases the shared client's connections.
func CloseRedis() {
	if redisClient == nil {
		return
	}
	if err := redisClient.Close(); err != nil {
		Sugar.Warnw("redis close failed", "err", err)
	}
}
