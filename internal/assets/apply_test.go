package assets

import (
	"testing"

	"github.com/persona/backend/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSelectedFrameComparesByIDExceptPlatform(t *testing.T) {
	cfg := theme.Default()
	cfg.Frame = theme.StringPtr("s3")

	storeFrame := FromStore(StoreItem{ID: "s3", ImageURL: "https://cdn.test/s3.png", Type: CategoryFrame, Owned: true})
	assert.True(t, IsSelected(CategoryFrame, storeFrame, cfg, ""))

	cfg.Frame = theme.StringPtr("https://cdn.test/s3.png")
	assert.False(t, IsSelected(CategoryFrame, storeFrame, cfg, ""))

	platformFrame := FromPlatform(PlatformItem{Kind: PlatformDecoration, URL: "https://platform.test/deco.png"})
	cfg.Frame = theme.StringPtr("https://platform.test/deco.png")
	assert.True(t, IsSelected(CategoryFrame, platformFrame, cfg, ""))

	cfg.Frame = nil
	assert.False(t, IsSelected(CategoryFrame, platformFrame, cfg, ""))
}

func TestIsSelectedOtherCategoriesCompareByURL(t *testing.T) {
	cfg := theme.Default()
	cfg.Background.URL = "https://files.test/v1.mp4"
	cfg.Audio.URL = "https://files.test/v2.mp3"
	cfg.CursorURL = theme.StringPtr("https://files.test/v4.cur")

	assert.True(t, IsSelected(CategoryBackground, FromVault(VaultItem{ID: "other", URL: "https://files.test/v1.mp4"}), cfg, ""))
	assert.True(t, IsSelected(CategoryAudio, FromVault(VaultItem{URL: "https://files.test/v2.mp3"}), cfg, ""))
	assert.True(t, IsSelected(CategoryCursor, FromVault(VaultItem{URL: "https://files.test/v4.cur"}), cfg, ""))
	assert.True(t, IsSelected(CategoryAvatar, FromPlatform(PlatformItem{URL: "https://a.test/me.png"}), cfg, "https://a.test/me.png"))
	assert.False(t, IsSelected(CategoryAvatar, FromPlatform(PlatformItem{URL: ""}), cfg, ""))
}

func TestApplyProducesConfigWrites(t *testing.T) {
	store := theme.NewStore(theme.Default())

	video := FromVault(VaultItem{ID: "v1", URL: "https://files.test/v1.mp4", Type: VaultVideo})
	change := Apply(CategoryBackground, &video)
	for _, update := range change.Updates {
		_, err := store.Update(update.Path, update.Value)
		require.NoError(t, err)
	}
	cfg := store.Snapshot()
	assert.Equal(t, theme.BackgroundVideo, cfg.Background.Type)
	assert.Equal(t, "https://files.test/v1.mp4", cfg.Background.URL)
	assert.True(t, IsSelected(CategoryBackground, video, cfg, ""))

	for _, update := range Apply(CategoryBackground, nil).Updates {
		_, err := store.Update(update.Path, update.Value)
		require.NoError(t, err)
	}
	cfg = store.Snapshot()
	assert.Equal(t, theme.BackgroundColor, cfg.Background.Type)
	assert.Equal(t, "", cfg.Background.URL)
}

func TestApplyFrameAndCursorRoundTrip(t *testing.T) {
	store := theme.NewStore(theme.Default())

	frame := FromStore(StoreItem{ID: "s3", Type: CategoryFrame, Owned: true})
	for _, update := range Apply(CategoryFrame, &frame).Updates {
		_, err := store.Update(update.Path, update.Value)
		require.NoError(t, err)
	}
	assert.True(t, IsSelected(CategoryFrame, frame, store.Snapshot(), ""))

	cursor := FromVault(VaultItem{ID: "v4", URL: "https://files.test/v4.cur", Type: VaultCursor})
	for _, update := range Apply(CategoryCursor, &cursor).Updates {
		_, err := store.Update(update.Path, update.Value)
		require.NoError(t, err)
	}
	require.NotNil(t, store.Snapshot().CursorURL)

	for _, category := range []Category{CategoryFrame, CategoryCursor} {
		for _, update := range Apply(category, nil).Updates {
			_, err := store.Update(update.Path, update.Value)
			require.NoError(t, err)
		}
	}
	assert.Nil(t, store.Snapshot().Frame)
	assert.Nil(t, store.Snapshot().CursorURL)
}

func TestApplyAudioRaisesOverride(t *testing.T) {
	song := FromVault(VaultItem{ID: "v2", URL: "https://files.test/v2.mp3", Type: VaultAudio})
	change := Apply(CategoryAudio, &song)
	assert.True(t, change.ForceAudio)
	require.Len(t, change.Updates, 1)
	assert.Equal(t, []string{"audio", "url"}, change.Updates[0].Path)

	assert.False(t, Apply(CategoryAudio, nil).ForceAudio)
}

func TestApplyAvatarTouchesProfileOnly(t *testing.T) {
	avatar := FromPlatform(PlatformItem{Kind: PlatformAvatar, URL: "https://platform.test/avatar.png"})
	change := Apply(CategoryAvatar, &avatar)
	assert.Empty(t, change.Updates)
	require.NotNil(t, change.Avatar)
	assert.Equal(t, "https://platform.test/avatar.png", *change.Avatar)

	reverted := Apply(CategoryAvatar, nil)
	require.NotNil(t, reverted.Avatar)
	assert.Equal(t, "", *reverted.Avatar)
}

func TestBackgroundTypeFromStoreURL(t *testing.T) {
	assert.Equal(t, theme.BackgroundVideo, backgroundTypeOf(FromStore(StoreItem{ImageURL: "https://cdn.test/loop.WEBM?v=2"})))
	assert.Equal(t, theme.BackgroundImage, backgroundTypeOf(FromStore(StoreItem{ImageURL: "https://cdn.test/still.png"})))
}
