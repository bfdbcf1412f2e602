// Package render turns a profile's theme and public data into a scene
// description the page client draws. Rendering never fails: missing data
// drops the affected panel.
package render

import (
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/theme"
)

const maxRawBadges = 6

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

type Social struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type Badge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type UserPresence struct {
	Username  string `json:"username"`
	Status    string `json:"status"`
	Activity  string `json:"activity,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ServerPresence struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	MemberCount int    `json:"memberCount"`
	OnlineCount int    `json:"onlineCount"`
}

// Entities is the resolved public data shown next to the theme.
type Entities struct {
	DisplayName     string
	Username        string
	Bio             string
	AvatarURL       string
	Links           []Link
	Socials         []Social
	Badges          []Badge
	DisplayedBadges []string
	User            *UserPresence
	Servers         map[string]ServerPresence
	Frame           *assets.Asset
}

type BackgroundLayer struct {
	Variant theme.BackgroundType `json:"variant"`
	Color   string               `json:"color,omitempty"`
	URL     string               `json:"url,omitempty"`
	Blur    float64              `json:"blur"`
	Opacity float64              `json:"opacity"`
	Muted   bool                 `json:"muted"`
}

type Card struct {
	Stops        []string `json:"stops"`
	Gradient     bool     `json:"gradient"`
	BorderWidth  float64  `json:"borderWidth"`
	BorderColor  string   `json:"borderColor"`
	BorderColor2 string   `json:"borderColor2"`
	BorderRadius float64  `json:"borderRadius"`
	Blur         float64  `json:"blur"`
	Opacity      float64  `json:"opacity"`
}

type AudioDirective struct {
	URL      string `json:"url"`
	Autoplay bool   `json:"autoplay"`
	Muted    bool   `json:"muted"`
	Start    bool   `json:"start"`
}

type Identity struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

type BadgePanel struct {
	Items    []Badge `json:"items"`
	Overflow int     `json:"overflow"`
}

type PresencePanel struct {
	Type   theme.PresenceType `json:"type"`
	User   *UserPresence      `json:"user,omitempty"`
	Server *ServerPresence    `json:"server,omitempty"`
}

type FrameOverlay struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type Scene struct {
	Entered          bool                   `json:"entered"`
	EntranceText     string                 `json:"entranceText"`
	EntranceFont     string                 `json:"entranceFont"`
	Background       BackgroundLayer        `json:"background"`
	Card             Card                   `json:"card"`
	BackgroundEffect theme.BackgroundEffect `json:"backgroundEffect"`
	UsernameEffect   theme.UsernameEffect   `json:"usernameEffect"`
	Glow             theme.GlowSettings     `json:"glow"`
	TextColor        string                 `json:"textColor"`
	AccentColor      string                 `json:"accentColor"`
	Cursor           string                 `json:"cursor,omitempty"`
	Identity         Identity               `json:"identity"`
	Audio            *AudioDirective        `json:"audio,omitempty"`
	Links            []Link                 `json:"links,omitempty"`
	Socials          []Social               `json:"socials,omitempty"`
	Badges           *BadgePanel            `json:"badges,omitempty"`
	Presence         *PresencePanel         `json:"presence,omitempty"`
	Frame            *FrameOverlay          `json:"frame,omitempty"`
}

// Render is a pure projection of cfg and entities. Audio only starts once
// the visitor has entered.
func Render(cfg theme.Config, entities Entities, entered bool) Scene {
	scene := Scene{
		Entered:          entered,
		EntranceText:     cfg.EntranceText,
		EntranceFont:     cfg.EntranceFont,
		Background:       renderBackground(cfg, entered),
		Card:             renderCard(cfg),
		BackgroundEffect: cfg.Effects.Background,
		UsernameEffect:   cfg.Effects.Username,
		Glow:             cfg.GlowSettings,
		TextColor:        cfg.Colors.Text,
		AccentColor:      cfg.Colors.Accent,
		Identity: Identity{
			DisplayName: entities.DisplayName,
			Username:    entities.Username,
			Bio:         entities.Bio,
			AvatarURL:   entities.AvatarURL,
		},
		Links:    validLinks(entities.Links),
		Socials:  validSocials(entities.Socials),
		Badges:   renderBadges(entities.Badges, entities.DisplayedBadges),
		Presence: renderPresence(cfg, entities),
	}
	if scene.Identity.DisplayName == "" {
		scene.Identity.DisplayName = entities.Username
	}
	if cfg.CursorURL != nil {
		scene.Cursor = *cfg.CursorURL
	}
	if cfg.Audio.URL != "" {
		scene.Audio = &AudioDirective{
			URL:      cfg.Audio.URL,
			Autoplay: cfg.Audio.AutoPlay,
			Muted:    !entered,
			Start:    entered && cfg.Audio.AutoPlay,
		}
	}
	if entities.Frame != nil && entities.Frame.URL() != "" {
		scene.Frame = &FrameOverlay{ID: entities.Frame.ID(), URL: entities.Frame.URL(), Name: entities.Frame.Name()}
	}
	return scene
}

// WithAudioOverride applies the editor's "force unmuted" preview signal.
func WithAudioOverride(scene Scene) Scene {
	scene.Background.Muted = false
	if scene.Audio != nil {
		audio := *scene.Audio
		audio.Muted = false
		audio.Start = true
		scene.Audio = &audio
	}
	return scene
}

func renderBackground(cfg theme.Config, entered bool) BackgroundLayer {
	background := cfg.Background
	if background.Type == theme.BackgroundColor || background.URL == "" {
		return BackgroundLayer{
			Variant: theme.BackgroundColor,
			Color:   cfg.Colors.Background,
			Opacity: 1,
		}
	}
	layer := BackgroundLayer{
		Variant: background.Type,
		URL:     background.URL,
		Blur:    background.Blur,
		Opacity: background.Opacity,
	}
	if background.Type == theme.BackgroundVideo {
		layer.Muted = background.IsMuted || !entered
	}
	return layer
}

func renderCard(cfg theme.Config) Card {
	alpha := cfg.Appearance.ProfileOpacity
	card := Card{
		Stops:        []string{withAlpha(cfg.Colors.CardBackground, alpha)},
		BorderWidth:  cfg.Layout.BorderWidth,
		BorderColor:  cfg.Layout.BorderColor,
		BorderColor2: cfg.Layout.BorderColor2,
		BorderRadius: cfg.Layout.BorderRadius,
		Blur:         cfg.Appearance.ProfileBlur,
		Opacity:      alpha,
	}
	second := cfg.Colors.CardBackground2
	if second != nil && *second != "" && *second != cfg.Colors.CardBackground {
		card.Stops = append(card.Stops, withAlpha(*second, alpha))
		card.Gradient = true
	}
	return card
}

func validLinks(links []Link) []Link {
	var out []Link
	for _, link := range links {
		if link.URL != "" {
			out = append(out, link)
		}
	}
	return out
}

func validSocials(socials []Social) []Social {
	var out []Social
	for _, social := range socials {
		if social.URL != "" {
			out = append(out, social)
		}
	}
	return out
}

// renderBadges prefers the curated selection. Without one it shows the
// first few owned badges and counts the rest.
func renderBadges(owned []Badge, curated []string) *BadgePanel {
	if len(owned) == 0 {
		return nil
	}

	if len(curated) > 0 {
		byID := make(map[string]Badge, len(owned))
		for _, badge := range owned {
			byID[badge.ID] = badge
		}
		panel := &BadgePanel{}
		for _, id := range curated {
			if badge, ok := byID[id]; ok {
				panel.Items = append(panel.Items, badge)
			}
		}
		if len(panel.Items) > 0 {
			return panel
		}
	}

	visible := min(len(owned), maxRawBadges)
	return &BadgePanel{
		Items:    append([]Badge(nil), owned[:visible]...),
		Overflow: len(owned) - visible,
	}
}

func renderPresence(cfg theme.Config, entities Entities) *PresencePanel {
	if !cfg.Presence.Discord {
		return nil
	}

	if cfg.Presence.Type == theme.PresenceServer {
		server, ok := cfg.ActiveServer()
		if !ok {
			return nil
		}
		live, ok := entities.Servers[server.ID]
		if !ok {
			live = ServerPresence{ID: server.ID, Name: server.Name, Icon: server.Icon}
		}
		return &PresencePanel{Type: theme.PresenceServer, Server: &live}
	}

	if entities.User == nil {
		return nil
	}
	user := *entities.User
	return &PresencePanel{Type: theme.PresenceUser, User: &user}
}
