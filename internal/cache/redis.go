// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
)

// RedisStore keeps embeddings in Redis so replicas share extraction work
type RedisStore struct {
	client *redis.Client
}

// NewRedis creates a new RedisStore connected to the specified Redis address
// If addr is empty, defaults to localhost:6379
func NewRedis(ctx context.Context, addr string) (*RedisStore, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password by default
		DB:       0,  // Default DB
	})

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// Get retrieves an embedding, returning ErrMiss when the key does not exist
func (r *RedisStore) Get(ctx context.Context, key string) (inference.Embedding, error) {
	if r.client == nil {
		return nil, fmt.Errorf("cache client is nil")
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding %s: %w", key, err)
	}

	return decodeEmbedding(data)
}

// Set stores an embedding with the specified TTL
func (r *RedisStore) Set(ctx context.Context, key string, emb inference.Embedding, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("cache client is nil")
	}

	if err := r.client.Set(ctx, key, encodeEmbedding(emb), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding %s: %w", key, err)
	}

	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
