// Package editor runs one profile customization session: the live config,
// presence linking, the asset catalogue and saving back to the profile.
package editor

import (
	"context"
	"io"
	"time"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/theme"
)

// ProfileBundle is what the editor loads for the signed-in user. Theme is
// already normalized.
type ProfileBundle struct {
	UserID    string       `json:"userId"`
	Username  string       `json:"username"`
	Premium   bool         `json:"premium"`
	IsAdmin   bool         `json:"isAdmin"`
	AvatarURL string       `json:"avatarUrl"`
	Theme     theme.Config `json:"theme"`
}

// PartialProfile replaces only the fields that are set. Frame set to an
// empty string clears the selected frame.
type PartialProfile struct {
	Theme     *theme.Config   `json:"theme,omitempty"`
	Presence  *theme.Presence `json:"presence,omitempty"`
	Frame     *string         `json:"frame,omitempty"`
	AvatarURL *string         `json:"avatarUrl,omitempty"`
}

type ProfileAPI interface {
	Read(ctx context.Context, userID string) (ProfileBundle, error)
	Write(ctx context.Context, userID string, patch PartialProfile) error
}

type Upload struct {
	Name        string
	Filename    string
	ContentType string
	Type        assets.VaultType
	Size        int64
	Body        io.Reader
}

type UploadStats struct {
	UploadCount int  `json:"uploadCount"`
	Limit       int  `json:"limit"`
	IsAdmin     bool `json:"isAdmin"`
}

// Full reports whether a non-admin has used every upload slot.
func (s UploadStats) Full() bool {
	return !s.IsAdmin && s.UploadCount >= s.Limit
}

type UploadAPI interface {
	assets.VaultSource
	Create(ctx context.Context, userID string, upload Upload) (assets.VaultItem, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteBatch(ctx context.Context, userID string, ids []string) (int, error)
	Stats(ctx context.Context, userID string) (UploadStats, error)
}

type StoreAPI interface {
	assets.StoreSource
}

type PlatformLinkAPI interface {
	assets.PlatformSource
}

type Template struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Config    theme.Config `json:"config"`
	CreatedAt time.Time    `json:"createdAt"`
}

type TemplateAPI interface {
	Save(ctx context.Context, userID, name string, cfg theme.Config) (Template, error)
	Get(ctx context.Context, userID, id string) (Template, error)
}
