package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis implements the Store interface with one hash per scope.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "slackproc:tags:"
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisFromClient(client, opts.Prefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "slackproc:tags:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) hashKey(scope string) string {
	return r.prefix + scope
}

func (r *Redis) Get(ctx context.Context, scope, key string) (json.RawMessage, error) {
	val, err := r.client.HGet(ctx, r.hashKey(scope), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag %q: %w", key, err)
	}
	return json.RawMessage(val), nil
}

func (r *Redis) Set(ctx context.Context, scope, key string, value json.RawMessage) error {
	if err := r.client.HSet(ctx, r.hashKey(scope), key, string(value)).Err(); err != nil {
		return fmt.Errorf("set tag %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, scope, key string) error {
	if err := r.client.HDel(ctx, r.hashKey(scope), key).Err(); err != nil {
		return fmt.Errorf("delete tag %q: %w", key, err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, scope string) (map[string]json.RawMessage, error) {
	vals, err := r.client.HGetAll(ctx, r.hashKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	result := make(map[string]json.RawMessage, len(vals))
	for k, v := range vals {
		result[k] = json.RawMessage(v)
	}
	return result, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
