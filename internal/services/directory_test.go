package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/presence"
	"github.com/persona/backend/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectoryServer(t *testing.T) *DirectoryService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/invites/abc":
			_, _ = w.Write([]byte(`{"code":"abc","guild":{"id":"42","name":"Night Owls","icon":"f00"},"approximate_member_count":120,"approximate_presence_count":30}`))
		case "/invites/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Unknown Invite","code":10006}`))
		case "/guilds/123456789012345678":
			if r.Header.Get("Authorization") != "Bot token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"123456789012345678","name":"Guild","approximate_member_count":5,"approximate_presence_count":2}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	return NewDirectoryService(config.DiscordConfig{APIBaseURL: srv.URL + "/", BotToken: "token"})
}

func TestDirectoryLookupInvite(t *testing.T) {
	dir := newDirectoryServer(t)

	info, err := dir.Lookup(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, presence.ServerInfo{
		ID:          "abc",
		Name:        "Night Owls",
		Icon:        "https://cdn.discordapp.com/icons/42/f00.png",
		GuildID:     "42",
		MemberCount: 120,
	}, info)
}

func TestDirectoryLookupUnknownInvite(t *testing.T) {
	dir := newDirectoryServer(t)

	_, err := dir.Lookup(context.Background(), "missing")
	var lookupErr *presence.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.True(t, lookupErr.NotFound)
	assert.Equal(t, "Unknown Invite", lookupErr.Message)
}

func TestDirectoryLookupByGuildID(t *testing.T) {
	dir := newDirectoryServer(t)

	info, err := dir.Lookup(context.Background(), "123456789012345678")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678", info.GuildID)
	assert.Empty(t, info.Icon)
}

func TestDirectoryUnavailable(t *testing.T) {
	dir := newDirectoryServer(t)

	_, err := dir.Lookup(context.Background(), "down")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestDirectoryPresenceKeepsLinkedID(t *testing.T) {
	dir := newDirectoryServer(t)

	live, err := dir.Presence(context.Background(), theme.NetworkServer{ID: "abc", Name: "Old name"})
	require.NoError(t, err)
	assert.Equal(t, "abc", live.ID)
	assert.Equal(t, "Night Owls", live.Name)
	assert.Equal(t, 120, live.MemberCount)
	assert.Equal(t, 30, live.OnlineCount)
}
