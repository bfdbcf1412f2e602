package services

import (
	"context"
	"strings"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
)

type UserPresenceSource interface {
	UserPresence(ctx context.Context, userID string) (*render.UserPresence, error)
}

type ServerPresenceSource interface {
	Presence(ctx context.Context, server theme.NetworkServer) (render.ServerPresence, error)
}

// PublicProfile is everything the public page needs for one username.
type PublicProfile struct {
	User     *models.User
	Profile  *models.Profile
	Config   theme.Config
	Entities render.Entities
}

// PublicService assembles public pages. Users and Servers are optional; a
// failing presence source only hides its panel.
type PublicService struct {
	Profiles *ProfileService
	Store    *StoreService
	Users    UserPresenceSource
	Servers  ServerPresenceSource
}

func (s *PublicService) Lookup(ctx context.Context, username string) (*PublicProfile, error) {
	user, profile, err := s.Profiles.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	cfg := ThemeOf(profile)

	entities := render.Entities{
		DisplayName:     user.DisplayName,
		Username:        user.Username,
		Bio:             profile.Bio,
		AvatarURL:       user.AvatarURL,
		DisplayedBadges: profile.DisplayedBadges,
	}
	if entities.DisplayName == "" {
		entities.DisplayName = user.Username
	}
	for _, link := range profile.Links {
		entities.Links = append(entities.Links, render.Link{Title: link.Title, URL: link.URL, Icon: link.Icon})
	}
	for _, social := range profile.Socials {
		entities.Socials = append(entities.Socials, render.Social{Platform: social.Platform, URL: social.URL})
	}
	for _, badge := range profile.Badges {
		entities.Badges = append(entities.Badges, render.Badge{ID: badge.ID, Name: badge.Name, Icon: badge.Icon})
	}

	entities.Frame = s.frame(ctx, cfg.Frame)
	s.presence(ctx, user, cfg, &entities)

	return &PublicProfile{User: user, Profile: profile, Config: cfg, Entities: entities}, nil
}

// frame resolves a stored frame id: a store slug, or a platform decoration
// url.
func (s *PublicService) frame(ctx context.Context, id *string) *assets.Asset {
	if id == nil || *id == "" {
		return nil
	}
	if strings.HasPrefix(*id, "http://") || strings.HasPrefix(*id, "https://") {
		asset := assets.FromPlatform(assets.PlatformItem{Kind: assets.PlatformDecoration, URL: *id, Provider: ProviderDiscord})
		return &asset
	}
	if s.Store == nil {
		return nil
	}
	item, err := s.Store.FindBySlug(ctx, *id)
	if err != nil {
		return nil
	}
	asset := assets.FromStore(toStoreAsset(*item, true))
	return &asset
}

func (s *PublicService) presence(ctx context.Context, user *models.User, cfg theme.Config, entities *render.Entities) {
	if !cfg.Presence.Discord {
		return
	}

	if cfg.Presence.Type == theme.PresenceServer {
		server, ok := cfg.ActiveServer()
		if !ok || s.Servers == nil {
			return
		}
		live, err := s.Servers.Presence(ctx, server)
		if err != nil {
			logger.Warn("server_presence_unavailable", map[string]interface{}{
				"server": server.ID,
				"error":  err.Error(),
			})
			return
		}
		entities.Servers = map[string]render.ServerPresence{server.ID: live}
		return
	}

	if s.Users == nil {
		return
	}
	live, err := s.Users.UserPresence(ctx, user.ID.String())
	if err != nil {
		return
	}
	entities.User = live
}
