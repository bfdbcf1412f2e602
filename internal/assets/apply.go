package assets

import (
	"path"
	"strings"

	"github.com/persona/backend/internal/theme"
)

// IsSelected reports whether asset is the current choice for category.
// Frames are matched by item id, except platform decorations which have no
// id and are matched by URL like every other category. Avatars live on the
// profile rather than in the theme, so the caller passes the current one.
func IsSelected(category Category, asset Asset, cfg theme.Config, avatarURL string) bool {
	switch category {
	case CategoryFrame:
		if cfg.Frame == nil {
			return false
		}
		if asset.Provenance == ProvenancePlatform {
			return *cfg.Frame == asset.URL()
		}
		return *cfg.Frame == asset.ID()
	case CategoryBackground:
		return cfg.Background.URL != "" && cfg.Background.URL == asset.URL()
	case CategoryAudio:
		return cfg.Audio.URL != "" && cfg.Audio.URL == asset.URL()
	case CategoryCursor:
		return cfg.CursorURL != nil && *cfg.CursorURL != "" && *cfg.CursorURL == asset.URL()
	case CategoryAvatar:
		return avatarURL != "" && avatarURL == asset.URL()
	}
	return false
}

// Update is one config leaf write produced by applying a choice.
type Update struct {
	Path  []string
	Value any
}

// Change describes everything a choice touches. Avatar is set when the
// profile avatar (not the theme) changes; an empty string clears it.
type Change struct {
	Updates    []Update
	Avatar     *string
	ForceAudio bool
}

// Apply maps a picked asset to config writes. A nil asset is the default
// slot and reverts the category.
func Apply(category Category, asset *Asset) Change {
	if asset == nil {
		return revert(category)
	}

	url := asset.URL()
	switch category {
	case CategoryFrame:
		value := asset.ID()
		return Change{Updates: []Update{{Path: []string{"frame"}, Value: value}}}
	case CategoryBackground:
		return Change{Updates: []Update{
			{Path: []string{"background", "type"}, Value: string(backgroundTypeOf(*asset))},
			{Path: []string{"background", "url"}, Value: url},
		}}
	case CategoryAudio:
		return Change{
			Updates:    []Update{{Path: []string{"audio", "url"}, Value: url}},
			ForceAudio: true,
		}
	case CategoryCursor:
		return Change{Updates: []Update{{Path: []string{"cursorUrl"}, Value: url}}}
	case CategoryAvatar:
		return Change{Avatar: &url}
	}
	return Change{}
}

func revert(category Category) Change {
	switch category {
	case CategoryFrame:
		return Change{Updates: []Update{{Path: []string{"frame"}, Value: nil}}}
	case CategoryBackground:
		return Change{Updates: []Update{
			{Path: []string{"background", "type"}, Value: string(theme.BackgroundColor)},
			{Path: []string{"background", "url"}, Value: ""},
		}}
	case CategoryAudio:
		return Change{Updates: []Update{{Path: []string{"audio", "url"}, Value: ""}}}
	case CategoryCursor:
		return Change{Updates: []Update{{Path: []string{"cursorUrl"}, Value: nil}}}
	case CategoryAvatar:
		empty := ""
		return Change{Avatar: &empty}
	}
	return Change{}
}

var videoExtensions = map[string]bool{".mp4": true, ".webm": true, ".mov": true, ".m4v": true}

func backgroundTypeOf(asset Asset) theme.BackgroundType {
	if asset.Provenance == ProvenanceVault && asset.Vault != nil {
		if asset.Vault.Type == VaultVideo {
			return theme.BackgroundVideo
		}
		return theme.BackgroundImage
	}
	url := asset.URL()
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if videoExtensions[strings.ToLower(path.Ext(url))] {
		return theme.BackgroundVideo
	}
	return theme.BackgroundImage
}
