package apiclient

import (
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/theme"
)

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// PublicPage is GET /public/:username.
type PublicPage struct {
	Username   string       `json:"username"`
	Scene      render.Scene `json:"scene"`
	Views      int64        `json:"views"`
	NSFW       bool         `json:"nsfw"`
	VisitToken string       `json:"visitToken"`
}

// PresenceView is returned by every presence endpoint.
type PresenceView struct {
	Presence theme.Presence    `json:"presence"`
	States   map[string]string `json:"states"`
	Limit    int               `json:"limit"`
}

// UploadResult is POST /uploads.
type UploadResult struct {
	Item  assets.VaultItem   `json:"item"`
	Stats editor.UploadStats `json:"stats"`
}
