package rategate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricewatch/crawler/internal/types"
)

// keyPrefix matches rate_limit:<domain> exactly, so every worker process
// reads and writes the same key regardless of which one set it.
const keyPrefix = "rate_limit:"

// RedisGate is a Gate backed by a shared Redis instance.
type RedisGate struct {
	client *redis.Client
}

// NewRedisGate connects to addr and verifies the connection with a Ping.
func NewRedisGate(addr, password string, db int) (*RedisGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisGate{client: client}, nil
}

// NewRedisGateFromURL connects using a redis:// connection string (the
// shape REDIS_URL arrives in) and verifies it with a Ping.
func NewRedisGateFromURL(rawURL string) (*RedisGate, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisGate{client: client}, nil
}

// NewRedisGateFromClient wraps an already-constructed client, so tests can
// point a RedisGate at a miniredis instance.
func NewRedisGateFromClient(client *redis.Client) *RedisGate {
	return &RedisGate{client: client}
}

func (g *RedisGate) Check(ctx context.Context, domain string) (time.Duration, error) {
	ttl, err := g.client.TTL(ctx, keyPrefix+domain).Result()
	if err != nil {
		return 0, &types.RateGateError{Domain: domain, Op: "check", Err: err}
	}
	if ttl < 0 {
		// -1: key exists with no TTL (shouldn't happen, we always SETEX);
		// -2: key does not exist. Either way, the domain isn't gated.
		return 0, nil
	}
	return ttl, nil
}

func (g *RedisGate) Set(ctx context.Context, domain string, ttl time.Duration) error {
	if err := g.client.SetEx(ctx, keyPrefix+domain, "1", ttl).Err(); err != nil {
		return &types.RateGateError{Domain: domain, Op: "set", Err: err}
	}
	return nil
}

// Close releases the underlying Redis connection.
func (g *RedisGate) Close() error {
	return g.client.Close()
}
