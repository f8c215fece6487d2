package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jgoulah/eco2mix/pkg/models"
)

// RedisCache keeps the snapshot slot in Redis for hosts that already run one
type RedisCache struct {
	rdb *redis.Client
	key string
}

// NewRedisCache creates a cache on the given Redis server. The connection is lazy.
func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{rdb: rdb, key: StorageKey}
}

// Ping checks that the server is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Load returns the cached snapshot, or nil if none was ever saved
func (c *RedisCache) Load(ctx context.Context) (*models.Snapshot, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot cache: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}
	return decodeEnvelope(env)
}

// Save overwrites the cached snapshot. The key never expires.
func (c *RedisCache) Save(ctx context.Context, snapshot *models.Snapshot) error {
	env, err := encodeEnvelope(snapshot)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding snapshot envelope: %w", err)
	}

	if err := c.rdb.Set(ctx, c.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
