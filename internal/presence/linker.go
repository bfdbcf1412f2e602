// Package presence links external community servers to a profile and picks
// the one the public presence widget displays.
package presence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
)

var (
	ErrEmptyInvite = errors.New("server invite or id is required")
	ErrCapacity    = errors.New("linked server limit reached for your plan")
	ErrNotLinked   = errors.New("server is not linked to this profile")
	ErrSuperseded  = errors.New("verification superseded by a newer request")
)

// LookupError is a directory answer the user should see as-is, such as an
// unknown invite or a server the bot is not a member of.
type LookupError struct {
	Message  string
	NotFound bool
}

func (e *LookupError) Error() string {
	return e.Message
}

// ServerInfo is the directory metadata for one server.
type ServerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	MemberCount int    `json:"memberCount"`
	GuildID     string `json:"guildId"`
}

type Directory interface {
	Lookup(ctx context.Context, inviteID string) (ServerInfo, error)
}

// Persister writes the presence subtree outside the session. When it fails
// the linker restores the presence subtree it had before the call.
type Persister interface {
	PersistPresence(ctx context.Context, presence theme.Presence) error
}

type State string

const (
	StateUnlinked  State = "unlinked"
	StateVerifying State = "verifying"
	StateActive    State = "active"
	StateInactive  State = "inactive"
)

func TierLimit(premium bool) int {
	if premium {
		return 4
	}
	return 1
}

// NormalizeInvite reduces an invite URL or bare id to the bare id:
// "https://discord.gg/abc/" and "discord.com/invite/abc" both become "abc".
func NormalizeInvite(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimRight(value, "/")
	if i := strings.IndexAny(value, "?#"); i >= 0 {
		value = strings.TrimRight(value[:i], "/")
	}
	if i := strings.LastIndex(value, "/"); i >= 0 {
		value = value[i+1:]
	}
	return strings.TrimSpace(value)
}

// Linker owns presence.networkServers and presence.serverId of one
// session's config store.
type Linker struct {
	Store     *theme.Store
	Directory Directory
	Persister Persister

	mu        sync.Mutex
	issued    uint64
	resolved  uint64
	verifying map[string]int
}

func NewLinker(store *theme.Store, directory Directory, persister Persister) *Linker {
	return &Linker{
		Store:     store,
		Directory: directory,
		Persister: persister,
		verifying: map[string]int{},
	}
}

func findServer(servers []theme.NetworkServer, id string) int {
	for i, server := range servers {
		if server.ID == id || (server.GuildID != "" && server.GuildID == id) {
			return i
		}
	}
	return -1
}

// Verify links the server behind raw and makes it the active one. Linking
// an already linked server only re-activates it.
func (l *Linker) Verify(ctx context.Context, raw string, premium bool) (theme.Config, error) {
	id := NormalizeInvite(raw)
	if id == "" {
		return l.Store.Snapshot(), ErrEmptyInvite
	}

	current := l.Store.Snapshot()
	if index := findServer(current.Presence.NetworkServers, id); index >= 0 {
		return l.SetActive(ctx, current.Presence.NetworkServers[index].ID)
	}
	if len(current.Presence.NetworkServers) >= TierLimit(premium) {
		return current, ErrCapacity
	}

	l.mu.Lock()
	l.issued++
	token := l.issued
	l.verifying[id]++
	l.mu.Unlock()

	info, lookupErr := l.Directory.Lookup(ctx, id)

	l.mu.Lock()
	l.verifying[id]--
	if l.verifying[id] <= 0 {
		delete(l.verifying, id)
	}
	if token < l.resolved {
		l.mu.Unlock()
		logger.Info("presence_verify_superseded", map[string]interface{}{"invite": id})
		return l.Store.Snapshot(), ErrSuperseded
	}
	l.resolved = token
	l.mu.Unlock()

	if lookupErr != nil {
		return l.Store.Snapshot(), lookupErr
	}

	entry := theme.NetworkServer{ID: info.ID, Name: info.Name, Icon: info.Icon, GuildID: info.GuildID}
	if entry.ID == "" {
		entry.ID = id
	}

	return l.apply(ctx, func(presence *theme.Presence) error {
		index := findServer(presence.NetworkServers, entry.ID)
		if index < 0 && entry.GuildID != "" {
			index = findServer(presence.NetworkServers, entry.GuildID)
		}
		if index < 0 {
			if len(presence.NetworkServers) >= TierLimit(premium) {
				return ErrCapacity
			}
			presence.NetworkServers = append(presence.NetworkServers, entry)
			index = len(presence.NetworkServers) - 1
		}
		presence.Type = theme.PresenceServer
		presence.ServerID = presence.NetworkServers[index].ID
		return nil
	})
}

// Unlink removes one server, or with a nil id resets the presence widget
// while keeping the linked list.
func (l *Linker) Unlink(ctx context.Context, id *string) (theme.Config, error) {
	if id == nil {
		return l.apply(ctx, func(presence *theme.Presence) error {
			presence.ServerID = ""
			presence.Discord = false
			return nil
		})
	}

	target := strings.TrimSpace(*id)
	return l.apply(ctx, func(presence *theme.Presence) error {
		index := findServer(presence.NetworkServers, target)
		if index < 0 {
			return ErrNotLinked
		}
		removed := presence.NetworkServers[index]
		presence.NetworkServers = append(presence.NetworkServers[:index], presence.NetworkServers[index+1:]...)
		if presence.ServerID == removed.ID {
			presence.ServerID = ""
		}
		if len(presence.NetworkServers) == 0 {
			presence.ServerID = ""
			presence.Type = theme.PresenceUser
		}
		return nil
	})
}

// SetActive re-points the widget at an already linked server.
func (l *Linker) SetActive(ctx context.Context, id string) (theme.Config, error) {
	target := strings.TrimSpace(id)
	return l.apply(ctx, func(presence *theme.Presence) error {
		index := findServer(presence.NetworkServers, target)
		if index < 0 {
			return ErrNotLinked
		}
		presence.Type = theme.PresenceServer
		presence.ServerID = presence.NetworkServers[index].ID
		return nil
	})
}

// State reports where the entry id sits in the link lifecycle.
func (l *Linker) State(id string) State {
	l.mu.Lock()
	pending := l.verifying[id] > 0
	l.mu.Unlock()

	cfg := l.Store.Snapshot()
	index := findServer(cfg.Presence.NetworkServers, id)
	switch {
	case index >= 0 && cfg.Presence.Type == theme.PresenceServer && cfg.Presence.ServerID == cfg.Presence.NetworkServers[index].ID:
		return StateActive
	case index >= 0:
		return StateInactive
	case pending:
		return StateVerifying
	}
	return StateUnlinked
}

func (l *Linker) apply(ctx context.Context, fn func(presence *theme.Presence) error) (theme.Config, error) {
	var before theme.Presence
	next, err := l.Store.Mutate(func(cfg *theme.Config) error {
		before = cfg.Clone().Presence
		return fn(&cfg.Presence)
	})
	if err != nil {
		return next, err
	}
	if l.Persister == nil {
		return next, nil
	}

	if err := l.Persister.PersistPresence(ctx, next.Presence); err != nil {
		logger.Error("presence_persist_failed", err, map[string]interface{}{
			"server_id": next.Presence.ServerID,
		})
		restored, _ := l.Store.Mutate(func(cfg *theme.Config) error {
			cfg.Presence = before
			return nil
		})
		return restored, fmt.Errorf("saving presence: %w", err)
	}
	return next, nil
}
