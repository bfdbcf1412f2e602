package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/presence"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
	"github.com/tidwall/gjson"
)

const discordCDN = "https://cdn.discordapp.com"

var ErrDirectoryUnavailable = errors.New("server directory unavailable")

// DirectoryService looks servers up on the chat platform's REST API, by
// invite code or, with a bot token, by guild id.
type DirectoryService struct {
	BaseURL    string
	BotToken   string
	HTTPClient *http.Client
}

func NewDirectoryService(cfg config.DiscordConfig) *DirectoryService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DirectoryService{
		BaseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		BotToken:   cfg.BotToken,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type serverLookup struct {
	info   presence.ServerInfo
	online int
}

func isSnowflake(id string) bool {
	if len(id) < 15 || len(id) > 21 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (d *DirectoryService) Lookup(ctx context.Context, inviteID string) (presence.ServerInfo, error) {
	found, err := d.lookup(ctx, inviteID)
	if err != nil {
		return presence.ServerInfo{}, err
	}
	return found.info, nil
}

// Presence returns live counts for a linked server. Linked entries are
// keyed by the id they were verified with.
func (d *DirectoryService) Presence(ctx context.Context, server theme.NetworkServer) (render.ServerPresence, error) {
	found, err := d.lookup(ctx, server.ID)
	if err != nil {
		return render.ServerPresence{}, err
	}
	name := found.info.Name
	if name == "" {
		name = server.Name
	}
	icon := found.info.Icon
	if icon == "" {
		icon = server.Icon
	}
	return render.ServerPresence{
		ID:          server.ID,
		Name:        name,
		Icon:        icon,
		MemberCount: found.info.MemberCount,
		OnlineCount: found.online,
	}, nil
}

func (d *DirectoryService) lookup(ctx context.Context, id string) (serverLookup, error) {
	if isSnowflake(id) && d.BotToken != "" {
		return d.fetch(ctx, "/guilds/"+url.PathEscape(id)+"?with_counts=true", id, true)
	}
	return d.fetch(ctx, "/invites/"+url.PathEscape(id)+"?with_counts=true", id, false)
}

func (d *DirectoryService) fetch(ctx context.Context, path, id string, byGuild bool) (serverLookup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+path, nil)
	if err != nil {
		return serverLookup{}, err
	}
	req.Header.Set("Accept", "application/json")
	if byGuild {
		req.Header.Set("Authorization", "Bot "+d.BotToken)
	}

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		logger.Warn("directory_request_failed", map[string]interface{}{"id": id, "error": err.Error()})
		return serverLookup{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return serverLookup{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return serverLookup{}, &presence.LookupError{Message: directoryMessage(body, "Unknown invite"), NotFound: true}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return serverLookup{}, &presence.LookupError{Message: directoryMessage(body, "Bot is not a member of this server")}
	default:
		logger.Warn("directory_unexpected_status", map[string]interface{}{"id": id, "status": resp.StatusCode})
		return serverLookup{}, fmt.Errorf("%w: status %d", ErrDirectoryUnavailable, resp.StatusCode)
	}

	guild := gjson.GetBytes(body, "guild")
	if byGuild {
		guild = gjson.ParseBytes(body)
	}
	guildID := guild.Get("id").String()
	if guildID == "" {
		return serverLookup{}, &presence.LookupError{Message: "Invite does not point at a server", NotFound: true}
	}

	info := presence.ServerInfo{
		ID:          id,
		Name:        guild.Get("name").String(),
		GuildID:     guildID,
		MemberCount: int(gjson.GetBytes(body, "approximate_member_count").Int()),
	}
	if icon := guild.Get("icon").String(); icon != "" {
		info.Icon = fmt.Sprintf("%s/icons/%s/%s.png", discordCDN, guildID, icon)
	}
	return serverLookup{info: info, online: int(gjson.GetBytes(body, "approximate_presence_count").Int())}, nil
}

// directoryMessage returns the API's own error message so users see it
// verbatim.
func directoryMessage(body []byte, fallback string) string {
	if message := gjson.GetBytes(body, "message").String(); message != "" {
		return message
	}
	return fallback
}
