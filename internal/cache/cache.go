// Package cache is the optional read-through cache in front of public page
// loads. Entries are keyed by slug and expire after a fixed TTL. The cache
// is never a source of truth: callers treat every error as a miss.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starford/onepage/internal/models"
)

// DefaultTTL matches the lifetime of a published page in the cache.
const DefaultTTL = time.Hour

// ErrMiss is returned by Get when no live entry exists.
var ErrMiss = errors.New("cache: miss")

// Cache stores published documents by slug.
type Cache interface {
	Get(ctx context.Context, slug string) (models.Document, error)
	Set(ctx context.Context, doc models.Document) error
	Invalidate(ctx context.Context, slug string) error
	Close() error
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*Redis)(nil)
	_ Cache = Nop{}
)

// Key returns the cache key of a slug.
func Key(slug string) string {
	return "project:" + slug
}

// Backend identifies a Cache implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendRedis    Backend = "redis"
	BackendDisabled Backend = "disabled"
)

// Options selects and configures a backend.
type Options struct {
	Backend       Backend
	TTL           time.Duration
	MaxEntries    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open returns the Cache selected by opts.
func Open(ctx context.Context, opts Options) (Cache, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(ttl, opts.MaxEntries), nil
	case BackendRedis:
		return DialRedis(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			TTL:      ttl,
		})
	case BackendDisabled:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", opts.Backend)
	}
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (models.Document, error) { return models.Document{}, ErrMiss }
func (Nop) Set(context.Context, models.Document) error           { return nil }
func (Nop) Invalidate(context.Context, string) error             { return nil }
func (Nop) Close() error                                         { return nil }
