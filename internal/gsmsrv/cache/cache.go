// Package cache provides a Redis-backed cache for committed catalogue
// version lists. Version lists change only at commit time, so the cache is
// written through on read and invalidated on commit. The cache is optional:
// a nil *VersionCache is a valid no-op cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/skymodel/skymodel/internal/gsmsrv/config"
)

const (
	versionKeyPrefix  = "gsm:versions:"
	catalogueNamesKey = "gsm:catalogue_names"
)

// VersionCache caches committed version lists per catalogue name and the set
// of known catalogue names. Misses and Redis failures both fall through to
// the database; the cache never serves an error.
type VersionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVersionCache returns a cache from the server configuration, or nil when
// caching is disabled.
func NewVersionCache() *VersionCache {
	cfg := config.Config().Cache
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &VersionCache{rdb: rdb, ttl: cfg.GetTTLOrDefault()}
}

// GetVersions returns the cached version list for a catalogue name. The
// second return is false on miss, on Redis failure, or when the cache is
// disabled.
func (c *VersionCache) GetVersions(ctx context.Context, catalogueName string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, versionKeyPrefix+catalogueName).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("catalogue_name", catalogueName).Msg("version cache read failed")
		return nil, false
	}
	var versions []string
	if err := json.Unmarshal([]byte(raw), &versions); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("catalogue_name", catalogueName).Msg("version cache entry is corrupt")
		return nil, false
	}
	return versions, true
}

// SetVersions stores the version list for a catalogue name.
func (c *VersionCache) SetVersions(ctx context.Context, catalogueName string, versions []string) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(versions)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, versionKeyPrefix+catalogueName, raw, c.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("catalogue_name", catalogueName).Msg("version cache write failed")
	}
}

// GetCatalogueNames returns the cached set of committed catalogue names.
func (c *VersionCache) GetCatalogueNames(ctx context.Context) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, catalogueNamesKey).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("catalogue name cache read failed")
		return nil, false
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, false
	}
	return names, true
}

// SetCatalogueNames stores the set of committed catalogue names.
func (c *VersionCache) SetCatalogueNames(ctx context.Context, names []string) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, catalogueNamesKey, raw, c.ttl).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("catalogue name cache write failed")
	}
}

// Invalidate drops the cached entries touched by a commit to the given
// catalogue.
func (c *VersionCache) Invalidate(ctx context.Context, catalogueName string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, versionKeyPrefix+catalogueName, catalogueNamesKey).Err(); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("catalogue_name", catalogueName).Msg("version cache invalidation failed")
	}
}

// Close releases the Redis client.
func (c *VersionCache) Close() {
	if c == nil {
		return
	}
	c.rdb.Close()
}
