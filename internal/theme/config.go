// Package theme holds the visual configuration of a profile page and the
// rules for merging partial or legacy payloads against the default template.
package theme

type BackgroundType string

const (
	BackgroundColor BackgroundType = "color"
	BackgroundImage BackgroundType = "image"
	BackgroundVideo BackgroundType = "video"
)

type BackgroundEffect string

const (
	BackgroundEffectNone      BackgroundEffect = "none"
	BackgroundEffectScanlines BackgroundEffect = "scanlines"
	BackgroundEffectVHS       BackgroundEffect = "vhs"
	BackgroundEffectRain      BackgroundEffect = "rain"
	BackgroundEffectSnow      BackgroundEffect = "snow"
)

type UsernameEffect string

const (
	UsernameEffectNone    UsernameEffect = "none"
	UsernameEffectGlow    UsernameEffect = "glow"
	UsernameEffectRainbow UsernameEffect = "rainbow"
	UsernameEffectSparkle UsernameEffect = "sparkle"
)

type PresenceType string

const (
	PresenceUser   PresenceType = "user"
	PresenceServer PresenceType = "server"
)

// Config is the full visual customization record of one profile.
//
// Struct tags double as the merge schema: the json name is the payload key,
// and the theme tag carries value constraints (enum, min, max).
type Config struct {
	Colors       Colors       `json:"colors"`
	Background   Background   `json:"background"`
	Effects      Effects      `json:"effects"`
	GlowSettings GlowSettings `json:"glowSettings"`
	Audio        Audio        `json:"audio"`
	Appearance   Appearance   `json:"appearance"`
	CursorURL    *string      `json:"cursorUrl"`
	Frame        *string      `json:"frame"`
	Layout       Layout       `json:"layout"`
	Presence     Presence     `json:"presence"`
	EntranceText string       `json:"entranceText"`
	EntranceFont string       `json:"entranceFont"`
}

type Colors struct {
	Primary         string  `json:"primary"`
	Secondary       string  `json:"secondary"`
	Accent          string  `json:"accent"`
	Background      string  `json:"background"`
	Text            string  `json:"text"`
	CardBackground  string  `json:"cardBackground"`
	CardBackground2 *string `json:"cardBackground2"`
}

type Background struct {
	Type    BackgroundType `json:"type" theme:"enum=color|image|video"`
	URL     string         `json:"url"`
	Opacity float64        `json:"opacity" theme:"min=0,max=1"`
	Blur    float64        `json:"blur" theme:"min=0"`
	IsMuted bool           `json:"isMuted"`
}

type Effects struct {
	Background BackgroundEffect `json:"background" theme:"enum=none|scanlines|vhs|rain|snow"`
	Username   UsernameEffect   `json:"username" theme:"enum=none|glow|rainbow|sparkle"`
}

type GlowSettings struct {
	Username bool `json:"username"`
	Socials  bool `json:"socials"`
	Badges   bool `json:"badges"`
	Avatar   bool `json:"avatar"`
}

type Audio struct {
	URL      string `json:"url"`
	AutoPlay bool   `json:"autoPlay"`
}

type Appearance struct {
	ProfileOpacity float64 `json:"profileOpacity" theme:"min=0,max=1"`
	ProfileBlur    float64 `json:"profileBlur" theme:"min=0"`
}

type Layout struct {
	BorderWidth  float64 `json:"borderWidth" theme:"min=0"`
	BorderColor  string  `json:"borderColor"`
	BorderColor2 string  `json:"borderColor2"`
	BorderRadius float64 `json:"borderRadius" theme:"min=0"`
}

type Presence struct {
	Discord        bool            `json:"discord"`
	Type           PresenceType    `json:"type" theme:"enum=user|server"`
	ServerID       string          `json:"serverId"`
	NetworkServers []NetworkServer `json:"networkServers"`
}

// NetworkServer is an external community linked to the profile for presence display.
type NetworkServer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	GuildID string `json:"guildId"`
}

const (
	DefaultEntranceText = "click to enter"
	DefaultEntranceFont = "inter"
)

// Default returns a fresh copy of the default template.
func Default() Config {
	return Config{
		Colors: Colors{
			Primary:        "#8b5cf6",
			Secondary:      "#1e1b4b",
			Accent:         "#c4b5fd",
			Background:     "#0b0b10",
			Text:           "#ffffff",
			CardBackground: "#111118",
		},
		Background: Background{
			Type:    BackgroundColor,
			Opacity: 1,
		},
		Effects: Effects{
			Background: BackgroundEffectNone,
			Username:   UsernameEffectNone,
		},
		Audio: Audio{
			AutoPlay: true,
		},
		Appearance: Appearance{
			ProfileOpacity: 0.9,
		},
		Layout: Layout{
			BorderWidth:  1,
			BorderColor:  "#27272a",
			BorderColor2: "#27272a",
			BorderRadius: 16,
		},
		Presence: Presence{
			Type:           PresenceUser,
			NetworkServers: []NetworkServer{},
		},
		EntranceText: DefaultEntranceText,
		EntranceFont: DefaultEntranceFont,
	}
}

// Clone returns a deep copy safe to mutate independently of c.
func (c Config) Clone() Config {
	out := c
	out.Presence.NetworkServers = append([]NetworkServer{}, c.Presence.NetworkServers...)
	out.CursorURL = clonePtr(c.CursorURL)
	out.Frame = clonePtr(c.Frame)
	out.Colors.CardBackground2 = clonePtr(c.Colors.CardBackground2)
	return out
}

func clonePtr(value *string) *string {
	if value == nil {
		return nil
	}
	return StringPtr(*value)
}

// ActiveServer returns the linked server the presence widget points at, if any.
func (c Config) ActiveServer() (NetworkServer, bool) {
	if c.Presence.ServerID == "" {
		return NetworkServer{}, false
	}
	for _, server := range c.Presence.NetworkServers {
		if server.ID == c.Presence.ServerID {
			return server, true
		}
	}
	return NetworkServer{}, false
}

// StringPtr is a small helper for the nullable leaves.
func StringPtr(value string) *string {
	return &value
}
