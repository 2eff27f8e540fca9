package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hassanrz/psx-analytics/internal/config"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisConnection(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.Info("Successfully connected to Redis")

	return &RedisClient{Client: rdb}, nil
}

func (r *RedisClient) Close() {
	if r.Client != nil {
		r.Client.Close()
		logrus.Info("Redis connection closed")
	}
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.Client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

// AcquireRunLock takes the per-symbol pipeline lock. It returns false when
// another run already holds the symbol; the TTL bounds how long a crashed run
// can keep a symbol locked.
func (r *RedisClient) AcquireRunLock(ctx context.Context, symbol, runID string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, runLockKey(symbol), runID, ttl).Result()
}

// ReleaseRunLock drops the per-symbol lock, but only if this run still owns
// it. A lock that expired and was re-acquired by a newer run is left alone.
func (r *RedisClient) ReleaseRunLock(ctx context.Context, symbol, runID string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0`
	return r.Client.Eval(ctx, script, []string{runLockKey(symbol)}, runID).Err()
}

func runLockKey(symbol string) string {
	return "pipeline:lock:" + symbol
}

// SignalCacheKey is where the latest aggregated signal for a symbol lives.
func SignalCacheKey(symbol string) string {
	return "signal:latest:" + symbol
}
