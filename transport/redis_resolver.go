package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/va6996/tokenagent/config"
)

const defaultPeersKey = "agent:endpoints"

// RedisResolver looks endpoints up in a Redis hash of address -> endpoint
type RedisResolver struct {
	client *redis.Client
	key    string
}

// NewRedisResolver connects to Redis and verifies the connection
func NewRedisResolver(ctx context.Context, cfg config.ResolverConfig) (*RedisResolver, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	key := cfg.Key
	if key == "" {
		key = defaultPeersKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisResolver{client: client, key: key}, nil
}

func (r *RedisResolver) Resolve(ctx context.Context, address string) (string, error) {
	endpoint, err := r.client.HGet(ctx, r.key, address).Result()
	if errors.Is(err, redis.Nil) || (err == nil && endpoint == "") {
		return "", fmt.Errorf("%w: %s", ErrUnknownAddress, address)
	}
	if err != nil {
		return "", fmt.Errorf("redis lookup failed: %w", err)
	}
	return endpoint, nil
}

// Register publishes address -> endpoint so peers can reach this agent
func (r *RedisResolver) Register(ctx context.Context, address, endpoint string) error {
	if err := r.client.HSet(ctx, r.key, address, endpoint).Err(); err != nil {
		return fmt.Errorf("redis register failed: %w", err)
	}
	return nil
}

// Unregister removes address from the hash
func (r *RedisResolver) Unregister(ctx context.Context, address string) error {
	if err := r.client.HDel(ctx, r.key, address).Err(); err != nil {
		return fmt.Errorf("redis unregister failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisResolver) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
