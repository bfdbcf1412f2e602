package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const platformProfile = `{"id":"99","username":"alice","global_name":"Alice","avatar":"a_anim","banner":"plain","avatar_decoration_data":{"asset":"deco"}}`

func TestPlatformMedia(t *testing.T) {
	items := PlatformMedia([]byte(platformProfile))
	assert.Equal(t, []assets.PlatformItem{
		{Kind: assets.PlatformAvatar, URL: "https://cdn.discordapp.com/avatars/99/a_anim.gif", Provider: ProviderDiscord},
		{Kind: assets.PlatformBanner, URL: "https://cdn.discordapp.com/banners/99/plain.png", Provider: ProviderDiscord},
		{Kind: assets.PlatformDecoration, URL: "https://cdn.discordapp.com/avatar-decoration-presets/deco.png", Provider: ProviderDiscord},
	}, items)

	assert.Empty(t, PlatformMedia([]byte(`{"username":"no id"}`)))
	assert.Empty(t, PlatformMedia(nil))
}

func newPlatformAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth2/token":
			require.NoError(t, r.ParseForm())
			if r.Form.Get("code") != "good" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"live-token","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
		case "/v10/users/@me":
			if r.Header.Get("Authorization") != "Bearer live-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(platformProfile))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPlatformLinkFlow(t *testing.T) {
	utils.ConfigureEncryption("platform-test-secret")
	srv := newPlatformAPI(t)
	db := openTestDB(t)
	user := createUser(t, db, "alice", false)
	svc := NewPlatformLinkService(db, config.DiscordConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		APIBaseURL:   srv.URL + "/v10",
	})
	ctx := context.Background()

	authURL, err := svc.AuthURL("state-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, srv.URL+"/oauth2/authorize?"))
	assert.Contains(t, authURL, "state=state-1")

	_, err = svc.Link(ctx, user.ID, "bad")
	assert.Error(t, err)

	account, err := svc.Link(ctx, user.ID, "good")
	require.NoError(t, err)
	assert.Equal(t, "99", account.ExternalID)
	assert.NotEqual(t, "live-token", account.AccessToken)

	var stored models.LinkedAccount
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stored).Error)
	token, err := utils.DecryptAESGCM(stored.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "live-token", token)

	items, err := svc.PlatformAssets(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Len(t, items, 3)

	live, err := svc.UserPresence(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Alice", live.Username)
	assert.Equal(t, "offline", live.Status)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/99/a_anim.gif", live.AvatarURL)

	require.NoError(t, svc.Unlink(ctx, user.ID))
	assert.ErrorIs(t, svc.Unlink(ctx, user.ID), ErrPlatformNotLinked)

	items, err = svc.PlatformAssets(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPlatformDisabled(t *testing.T) {
	svc := NewPlatformLinkService(openTestDB(t), config.DiscordConfig{})

	_, err := svc.AuthURL("state")
	assert.ErrorIs(t, err, ErrPlatformDisabled)
}

func TestPlatformStateRoundTrip(t *testing.T) {
	utils.ConfigureEncryption("platform-test-secret")
	svc := NewPlatformLinkService(nil, config.DiscordConfig{})
	userID := uuid.New()

	state, err := svc.GenerateState(userID)
	require.NoError(t, err)
	sealed, err := svc.SealState(state)
	require.NoError(t, err)

	opened, err := svc.OpenState(sealed)
	require.NoError(t, err)
	assert.Equal(t, userID, opened.UserID)

	_, err = svc.OpenState(sealed + "x")
	assert.ErrorIs(t, err, ErrInvalidState)

	state.ExpiresAt = time.Now().Add(-time.Minute)
	expired, err := svc.SealState(state)
	require.NoError(t, err)
	_, err = svc.OpenState(expired)
	assert.ErrorIs(t, err, ErrInvalidState)
}
