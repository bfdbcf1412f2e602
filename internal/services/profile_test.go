package services

import (
	"context"
	"testing"

	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileService(t *testing.T) *ProfileService {
	t.Helper()
	return NewProfileService(openTestDB(t), config.LimitsConfig{FreeLinks: 2, PremiumLinks: 4})
}

func TestProfileReadCreatesDefault(t *testing.T) {
	svc := newProfileService(t)
	user := createUser(t, svc.DB, "alice", true)

	bundle, err := svc.Read(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "alice", bundle.Username)
	assert.True(t, bundle.Premium)
	assert.False(t, bundle.IsAdmin)
	assert.Equal(t, theme.Default(), bundle.Theme)

	var profiles int64
	require.NoError(t, svc.DB.Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)
}

func TestProfileWriteTheme(t *testing.T) {
	svc := newProfileService(t)
	user := createUser(t, svc.DB, "alice", false)
	ctx := context.Background()

	cfg := theme.Default()
	cfg.Colors.Accent = "#00ff00"
	frame := "halo"
	avatar := "/api/media/abc"
	require.NoError(t, svc.Write(ctx, user.ID.String(), editor.PartialProfile{Theme: &cfg, Frame: &frame, AvatarURL: &avatar}))

	bundle, err := svc.Read(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", bundle.Theme.Colors.Accent)
	require.NotNil(t, bundle.Theme.Frame)
	assert.Equal(t, "halo", *bundle.Theme.Frame)
	assert.Equal(t, avatar, bundle.AvatarURL)

	cleared := ""
	require.NoError(t, svc.Write(ctx, user.ID.String(), editor.PartialProfile{Frame: &cleared}))
	_, profile, err := svc.Load(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.Frame)
}

func TestProfileWritePresenceKeepsTheme(t *testing.T) {
	svc := newProfileService(t)
	user := createUser(t, svc.DB, "alice", false)
	ctx := context.Background()

	cfg := theme.Default()
	cfg.Colors.Primary = "#123456"
	require.NoError(t, svc.Write(ctx, user.ID.String(), editor.PartialProfile{Theme: &cfg}))

	presence := theme.Presence{
		Discord:        true,
		Type:           theme.PresenceServer,
		ServerID:       "abc",
		NetworkServers: []theme.NetworkServer{{ID: "abc", Name: "Owls", GuildID: "42"}},
	}
	require.NoError(t, svc.Write(ctx, user.ID.String(), editor.PartialProfile{Presence: &presence}))

	bundle, err := svc.Read(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "#123456", bundle.Theme.Colors.Primary)
	assert.Equal(t, presence, bundle.Theme.Presence)
}

func TestProfileUpdateDetails(t *testing.T) {
	svc := newProfileService(t)
	user := createUser(t, svc.DB, "alice", false)
	ctx := context.Background()

	name := "  Alice A.  "
	bio := "hello"
	nsfw := true
	links := []models.ProfileLink{{Title: "Blog", URL: "https://alice.dev"}}
	profile, err := svc.UpdateDetails(ctx, user.ID, ProfileDetails{DisplayName: &name, Bio: &bio, Links: &links, NSFW: &nsfw})
	require.NoError(t, err)
	assert.Equal(t, "hello", profile.Bio)
	assert.True(t, profile.NSFW)
	assert.Equal(t, links, profile.Links)

	var stored models.User
	require.NoError(t, svc.DB.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "Alice A.", stored.DisplayName)

	tooMany := []models.ProfileLink{
		{Title: "a", URL: "https://a.dev"},
		{Title: "b", URL: "https://b.dev"},
		{Title: "c", URL: "https://c.dev"},
	}
	_, err = svc.UpdateDetails(ctx, user.ID, ProfileDetails{Links: &tooMany})
	assert.ErrorIs(t, err, ErrLinkLimit)

	bad := []models.ProfileLink{{Title: "js", URL: "javascript:alert(1)"}}
	_, err = svc.UpdateDetails(ctx, user.ID, ProfileDetails{Links: &bad})
	assert.ErrorIs(t, err, ErrInvalidLink)

	badges := []string{"founder"}
	_, err = svc.UpdateDetails(ctx, user.ID, ProfileDetails{DisplayedBadges: &badges})
	assert.ErrorIs(t, err, ErrUnknownBadge)

	_, profile, err = svc.Load(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, links, profile.Links)
}

func TestProfileIncrementViews(t *testing.T) {
	svc := newProfileService(t)
	user := createUser(t, svc.DB, "alice", false)
	ctx := context.Background()

	_, profile, err := svc.Load(ctx, user.ID)
	require.NoError(t, err)

	views, err := svc.IncrementViews(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), views)
	views, err = svc.IncrementViews(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), views)
}

func TestProfileFindByUsernameIgnoresCase(t *testing.T) {
	svc := newProfileService(t)
	createUser(t, svc.DB, "Alice", false)

	user, _, err := svc.FindByUsername(context.Background(), " alice ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)

	_, _, err = svc.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
