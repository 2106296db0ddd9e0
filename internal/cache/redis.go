package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/onepage/internal/models"
)

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis stores documents as JSON strings with SETEX.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.TTL), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Get returns the cached document for slug.
func (r *Redis) Get(ctx context.Context, slug string) (models.Document, error) {
	data, err := r.client.Get(ctx, Key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Document{}, ErrMiss
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("cache: get %s: %w", slug, err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("cache: decode %s: %w", slug, err)
	}
	return doc, nil
}

// Set stores doc under its slug for one TTL.
func (r *Redis) Set(ctx context.Context, doc models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", doc.Slug, err)
	}
	if err := r.client.SetEx(ctx, Key(doc.Slug), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", doc.Slug, err)
	}
	return nil
}

// Invalidate deletes the entry for slug.
func (r *Redis) Invalidate(ctx context.Context, slug string) error {
	if err := r.client.Del(ctx, Key(slug)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", slug, err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
