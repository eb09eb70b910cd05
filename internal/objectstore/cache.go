package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/allegro/bigcache/v3"
)

// CachedLinker reuses minted links for ttl so repeated listings do not re-sign every object.
type CachedLinker struct {
	next  Linker
	cache *bigcache.BigCache
	log   *slog.Logger
}

// NewCachedLinker wraps next. ttl must be shorter than the link expiry.
func NewCachedLinker(ctx context.Context, next Linker, ttl time.Duration, log *slog.Logger) (*CachedLinker, error) {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("link cache ttl must be positive, got %s", ttl)
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Shards = 64
	cfg.HardMaxCacheSize = 16
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create link cache: %w", err)
	}

	return &CachedLinker{next: next, cache: cache, log: log}, nil
}

// Link returns a cached link or mints and caches a new one.
func (c *CachedLinker) Link(ctx context.Context, key string) (string, error) {
	cached, err := c.cache.Get(key)
	if err == nil {
		return string(cached), nil
	}
	if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.log.Warn("link cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	link, err := c.next.Link(ctx, key)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, []byte(link)); err != nil {
		c.log.Warn("link cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return link, nil
}

// Close releases the cache.
func (c *CachedLinker) Close() error {
	return c.cache.Close()
}
