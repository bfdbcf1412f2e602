package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	calls int
	items []StoreItem
}

func (f *fakeStore) OwnedByCategory(_ context.Context, _ string, category Category) ([]StoreItem, error) {
	f.calls++
	var out []StoreItem
	for _, item := range f.items {
		if item.Type == category && item.Owned {
			out = append(out, item)
		}
	}
	return out, nil
}

type fakeVault struct {
	calls int
	items []VaultItem
	err   error
}

func (f *fakeVault) ListVault(context.Context, string) ([]VaultItem, error) {
	f.calls++
	return f.items, f.err
}

type fakePlatform struct {
	items []PlatformItem
	err   error
}

func (f *fakePlatform) PlatformAssets(context.Context, string) ([]PlatformItem, error) {
	return f.items, f.err
}

func TestCatalogueReadsThroughCache(t *testing.T) {
	store, vault, platform := sampleSources()
	storeSource := &fakeStore{items: store}
	vaultSource := &fakeVault{items: vault}
	catalogue := NewCatalogue(storeSource, vaultSource, &fakePlatform{items: platform}, NewMemoryCache(), time.Minute)
	ctx := context.Background()

	first, err := catalogue.Resolve(ctx, "u1", CategoryBackground)
	require.NoError(t, err)
	second, err := catalogue.Resolve(ctx, "u1", CategoryBackground)
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, 1, storeSource.calls)
	assert.Equal(t, 1, vaultSource.calls)

	catalogue.Invalidate(ctx, "u1", SourceVault)
	_, err = catalogue.Resolve(ctx, "u1", CategoryAudio)
	require.NoError(t, err)
	assert.Equal(t, 2, vaultSource.calls)
	assert.Equal(t, 2, storeSource.calls, "store is cached per category")
}

func TestCatalogueDegradesWithoutPlatform(t *testing.T) {
	store, vault, _ := sampleSources()
	catalogue := NewCatalogue(&fakeStore{items: store}, &fakeVault{items: vault}, &fakePlatform{err: errors.New("token expired")}, nil, time.Minute)

	got, err := catalogue.Resolve(context.Background(), "u1", CategoryBackground)
	require.NoError(t, err)
	assert.Equal(t, []string{"vault:v1", "vault:v3", "store:s1", "store:s4"}, ids(got))
}

func TestCatalogueSurfacesVaultErrors(t *testing.T) {
	catalogue := NewCatalogue(nil, &fakeVault{err: errors.New("db down")}, nil, nil, time.Minute)
	_, err := catalogue.Page(context.Background(), "u1", CategoryAudio, 0, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestMemoryCacheExpiresAndInvalidatesPerUser(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, CacheKey("u1", SourceVault, ""), []byte("a"), time.Minute))
	require.NoError(t, cache.Set(ctx, CacheKey("u2", SourceVault, ""), []byte("b"), 0))

	value, ok, err := cache.Get(ctx, CacheKey("u1", SourceVault, ""))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), value)

	now = now.Add(2 * time.Minute)
	_, ok, _ = cache.Get(ctx, CacheKey("u1", SourceVault, ""))
	assert.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "u2", SourceStore))
	_, ok, _ = cache.Get(ctx, CacheKey("u2", SourceVault, ""))
	assert.True(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "u2", SourceVault))
	_, ok, _ = cache.Get(ctx, CacheKey("u2", SourceVault, ""))
	assert.False(t, ok)
}
