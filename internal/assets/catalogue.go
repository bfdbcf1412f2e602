package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/persona/backend/pkg/logger"
)

type StoreSource interface {
	OwnedByCategory(ctx context.Context, userID string, category Category) ([]StoreItem, error)
}

type VaultSource interface {
	ListVault(ctx context.Context, userID string) ([]VaultItem, error)
}

type PlatformSource interface {
	PlatformAssets(ctx context.Context, userID string) ([]PlatformItem, error)
}

// Catalogue reads the three sources through a cache and resolves them.
// Platform failures degrade to an empty platform group; store and vault
// failures are returned.
type Catalogue struct {
	Store    StoreSource
	Vault    VaultSource
	Platform PlatformSource
	Cache    Cache
	TTL      time.Duration
}

func NewCatalogue(store StoreSource, vault VaultSource, platform PlatformSource, cache Cache, ttl time.Duration) *Catalogue {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Catalogue{Store: store, Vault: vault, Platform: platform, Cache: cache, TTL: ttl}
}

func (c *Catalogue) Resolve(ctx context.Context, userID string, category Category) ([]Asset, error) {
	var store []StoreItem
	if c.Store != nil {
		err := c.readThrough(ctx, CacheKey(userID, SourceStore, category), &store, func() (any, error) {
			return c.Store.OwnedByCategory(ctx, userID, category)
		})
		if err != nil {
			return nil, fmt.Errorf("loading store items: %w", err)
		}
	}

	var vault []VaultItem
	if c.Vault != nil {
		err := c.readThrough(ctx, CacheKey(userID, SourceVault, ""), &vault, func() (any, error) {
			return c.Vault.ListVault(ctx, userID)
		})
		if err != nil {
			return nil, fmt.Errorf("loading vault items: %w", err)
		}
	}

	var platform []PlatformItem
	if c.Platform != nil {
		err := c.readThrough(ctx, CacheKey(userID, SourcePlatform, ""), &platform, func() (any, error) {
			return c.Platform.PlatformAssets(ctx, userID)
		})
		if err != nil {
			logger.WarnWithUser(userID, "platform_assets_unavailable", map[string]interface{}{
				"category": string(category),
				"error":    err.Error(),
			})
			platform = nil
		}
	}

	return Resolve(category, store, vault, platform), nil
}

func (c *Catalogue) Page(ctx context.Context, userID string, category Category, page, size int) (Page, error) {
	list, err := c.Resolve(ctx, userID, category)
	if err != nil {
		return Page{}, err
	}
	return Paginate(list, page, size), nil
}

// Invalidate drops the cached list of one source after it was mutated.
func (c *Catalogue) Invalidate(ctx context.Context, userID string, source Source) {
	if err := c.Cache.Invalidate(ctx, userID, source); err != nil {
		logger.ErrorWithUser(userID, "asset_cache_invalidate_failed", err, map[string]interface{}{
			"source": string(source),
		})
	}
}

// readThrough decodes a cached entry into dst or calls load and caches its
// result. Cache errors are logged and treated as misses.
func (c *Catalogue) readThrough(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if cached, ok, err := c.Cache.Get(ctx, key); err != nil {
		logger.Warn("asset_cache_read_failed", map[string]interface{}{"key": key, "error": err.Error()})
	} else if ok {
		if err := json.Unmarshal(cached, dst); err == nil {
			return nil
		}
	}

	value, err := load()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.Cache.Set(ctx, key, encoded, c.TTL); err != nil {
		logger.Warn("asset_cache_write_failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return json.Unmarshal(encoded, dst)
}
