package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore caches upstream responses in a shared Redis so multiple
// instances (and restarts) reuse the same warm cache.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
	metrics   *Metrics
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig, metrics *Metrics) (*RedisStore, error) {
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "billdesk:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
		metrics:   metrics,
	}, nil
}

// Get returns the cached value for key. Backend errors count as misses so
// an unhealthy Redis degrades to refetching, never to failing requests.
func (rs *RedisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	value, err := rs.client.Get(ctx, rs.keyPrefix+key).Bytes()
	if err == redis.Nil {
		rs.metrics.misses.Inc()
		return nil, false
	}
	if err != nil {
		rs.metrics.errors.Inc()
		log.Printf("cache: redis get %q: %v", key, err)
		return nil, false
	}

	rs.metrics.hits.Inc()
	return value, true
}

// Set stores value under key for ttl.
func (rs *RedisStore) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	if err := rs.client.Set(ctx, rs.keyPrefix+key, value, ttl).Err(); err != nil {
		rs.metrics.errors.Inc()
		log.Printf("cache: redis set %q: %v", key, err)
		return
	}
	rs.metrics.sets.Inc()
}

// Delete removes key.
func (rs *RedisStore) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	if err := rs.client.Del(ctx, rs.keyPrefix+key).Err(); err != nil {
		rs.metrics.errors.Inc()
		log.Printf("cache: redis delete %q: %v", key, err)
	}
}

// Clear removes every key under the store's prefix.
func (rs *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	iter := rs.client.Scan(ctx, 0, rs.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := rs.client.Del(ctx, iter.Val()).Err(); err != nil {
			rs.metrics.errors.Inc()
			log.Printf("cache: redis clear %q: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		rs.metrics.errors.Inc()
		log.Printf("cache: redis scan: %v", err)
	}
}

// Stop closes the Redis connection.
func (rs *RedisStore) Stop() {
	if err := rs.client.Close(); err != nil {
		log.Printf("cache: redis close: %v", err)
	}
}
