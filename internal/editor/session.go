package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/presence"
	"github.com/persona/backend/internal/preview"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
)

var (
	ErrUploadLimit    = errors.New("upload limit reached")
	ErrUnknownAsset   = errors.New("asset is not available for this category")
	ErrInvalidTab     = errors.New("unknown editor tab")
	ErrSaveSuperseded = errors.New("save superseded by a newer save")
)

// Deps are the collaborators a session talks to.
type Deps struct {
	Profiles  ProfileAPI
	Uploads   UploadAPI
	Store     StoreAPI
	Platform  PlatformLinkAPI
	Directory presence.Directory
	Templates TemplateAPI
	Cache     assets.Cache
	CacheTTL  time.Duration
	PageSize  int
}

// Session is the single writer for one user's profile while it is being
// edited. Edits are visible in the preview immediately and reach the
// profile only through Save.
type Session struct {
	UserID  string
	Premium bool

	deps      Deps
	store     *theme.Store
	linker    *presence.Linker
	bridge    *preview.Bridge
	catalogue *assets.Catalogue

	mu        sync.Mutex
	tab       Tab
	avatarURL string
	avatarSet bool
	stats     UploadStats
	hasStats  bool

	saveMu       sync.Mutex
	saveIssued   uint64
	saveResolved uint64

	inventoryMu sync.RWMutex
	frames      []assets.Asset
}

// Open loads the profile and starts a session on it.
func Open(ctx context.Context, userID string, deps Deps) (*Session, error) {
	bundle, err := deps.Profiles.Read(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	s := &Session{
		UserID:    userID,
		Premium:   bundle.Premium,
		deps:      deps,
		store:     theme.NewStore(bundle.Theme),
		bridge:    preview.NewBridge(),
		tab:       TabColors,
		avatarURL: bundle.AvatarURL,
	}
	s.catalogue = assets.NewCatalogue(deps.Store, deps.Uploads, deps.Platform, deps.Cache, deps.CacheTTL)
	s.linker = presence.NewLinker(s.store, deps.Directory, s)

	s.refreshFrames(ctx)
	s.bridge.Attach(s.store, preview.FrameLookupFunc(s.lookupFrame))

	if deps.Uploads != nil {
		if err := s.refreshStats(ctx); err != nil {
			logger.WarnWithUser(userID, "editor_upload_stats_unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	logger.InfoWithUser(userID, "editor_session_opened", map[string]interface{}{"premium": bundle.Premium})
	return s, nil
}

// Close stops the preview from following the store.
func (s *Session) Close() {
	s.bridge.Detach()
}

func (s *Session) Snapshot() theme.Config {
	return s.store.Snapshot()
}

func (s *Session) Preview() preview.Frame {
	return s.bridge.Latest()
}

func (s *Session) Bridge() *preview.Bridge {
	return s.bridge
}

func (s *Session) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *Session) SetTab(value string) (Tab, error) {
	tab, ok := ParseTab(value)
	if !ok {
		return s.Tab(), fmt.Errorf("%w: %q", ErrInvalidTab, value)
	}
	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()
	return tab, nil
}

// Update writes one config leaf or subtree and returns the preview frame.
func (s *Session) Update(path []string, value any) (preview.Frame, error) {
	if _, err := s.store.Update(path, value); err != nil {
		return s.bridge.Latest(), err
	}
	return s.bridge.Latest(), nil
}

func (s *Session) Verify(ctx context.Context, invite string) (theme.Config, error) {
	return s.linker.Verify(ctx, invite, s.Premium)
}

func (s *Session) Unlink(ctx context.Context, id *string) (theme.Config, error) {
	return s.linker.Unlink(ctx, id)
}

func (s *Session) SetActive(ctx context.Context, id string) (theme.Config, error) {
	return s.linker.SetActive(ctx, id)
}

func (s *Session) PresenceState(id string) presence.State {
	return s.linker.State(id)
}

// PresenceLimit is how many servers this user's plan may link.
func (s *Session) PresenceLimit() int {
	return presence.TierLimit(s.Premium)
}

// PersistPresence lets presence changes reach the profile right away, so
// linking survives a discarded session.
func (s *Session) PersistPresence(ctx context.Context, value theme.Presence) error {
	return s.deps.Profiles.Write(ctx, s.UserID, PartialProfile{Presence: &value})
}

// Listing is one catalogue page with the current selection marked.
type Listing struct {
	assets.Page
	Selected        []bool `json:"selected"`
	DefaultSelected bool   `json:"defaultSelected"`
}

func (s *Session) Resolve(ctx context.Context, category assets.Category, page, size int) (Listing, error) {
	if size <= 0 {
		size = s.deps.PageSize
	}
	list, err := s.catalogue.Resolve(ctx, s.UserID, category)
	if err != nil {
		return Listing{}, err
	}
	if category == assets.CategoryFrame {
		s.setFrames(list)
	}

	cfg := s.store.Snapshot()
	avatar := s.AvatarURL()

	listing := Listing{Page: assets.Paginate(list, page, size)}
	listing.Selected = make([]bool, len(listing.Items))
	anySelected := false
	for i, asset := range listing.Items {
		listing.Selected[i] = assets.IsSelected(category, asset, cfg, avatar)
	}
	for _, asset := range list {
		if assets.IsSelected(category, asset, cfg, avatar) {
			anySelected = true
			break
		}
	}
	listing.DefaultSelected = listing.DefaultSlot && !anySelected
	return listing, nil
}

// ApplyAsset picks an asset by id for category; an empty id picks the
// default slot.
func (s *Session) ApplyAsset(ctx context.Context, category assets.Category, assetID string) (preview.Frame, error) {
	var chosen *assets.Asset
	if assetID != "" {
		list, err := s.catalogue.Resolve(ctx, s.UserID, category)
		if err != nil {
			return s.bridge.Latest(), err
		}
		if category == assets.CategoryFrame {
			s.setFrames(list)
		}
		for i := range list {
			if list[i].ID() == assetID {
				chosen = &list[i]
				break
			}
		}
		if chosen == nil {
			return s.bridge.Latest(), fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
		}
	}

	change := assets.Apply(category, chosen)
	if len(change.Updates) > 0 {
		_, err := s.store.Mutate(func(cfg *theme.Config) error {
			staged := theme.NewStore(*cfg)
			for _, update := range change.Updates {
				if _, err := staged.Update(update.Path, update.Value); err != nil {
					return err
				}
			}
			*cfg = staged.Snapshot()
			return nil
		})
		if err != nil {
			return s.bridge.Latest(), err
		}
	}
	if change.Avatar != nil {
		s.mu.Lock()
		s.avatarURL = *change.Avatar
		s.avatarSet = true
		s.mu.Unlock()
	}
	if change.ForceAudio {
		s.bridge.ForceAudio()
	}
	return s.bridge.Latest(), nil
}

func (s *Session) AvatarURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avatarURL
}

// Save writes the current snapshot and selected frame. A failed save leaves
// local state as it was; a save overtaken by a newer one reports
// ErrSaveSuperseded.
func (s *Session) Save(ctx context.Context) (theme.Config, error) {
	snapshot := s.store.Snapshot()
	frame := ""
	if snapshot.Frame != nil {
		frame = *snapshot.Frame
	}
	patch := PartialProfile{Theme: &snapshot, Frame: &frame}

	s.mu.Lock()
	if s.avatarSet {
		avatar := s.avatarURL
		patch.AvatarURL = &avatar
	}
	s.mu.Unlock()

	s.saveMu.Lock()
	s.saveIssued++
	token := s.saveIssued
	s.saveMu.Unlock()

	err := s.deps.Profiles.Write(ctx, s.UserID, patch)

	s.saveMu.Lock()
	if token < s.saveResolved {
		s.saveMu.Unlock()
		return snapshot, ErrSaveSuperseded
	}
	s.saveResolved = token
	s.saveMu.Unlock()

	if err != nil {
		logger.ErrorWithUser(s.UserID, "profile_save_failed", err, nil)
		return snapshot, fmt.Errorf("saving profile: %w", err)
	}

	if patch.AvatarURL != nil {
		s.mu.Lock()
		if s.avatarURL == *patch.AvatarURL {
			s.avatarSet = false
		}
		s.mu.Unlock()
	}
	logger.InfoWithUser(s.UserID, "profile_saved", map[string]interface{}{"frame": frame})
	return snapshot, nil
}

// Discard drops unsaved edits by reloading the stored profile.
func (s *Session) Discard(ctx context.Context) (theme.Config, error) {
	bundle, err := s.deps.Profiles.Read(ctx, s.UserID)
	if err != nil {
		return s.store.Snapshot(), fmt.Errorf("loading profile: %w", err)
	}
	s.mu.Lock()
	s.avatarURL = bundle.AvatarURL
	s.avatarSet = false
	s.mu.Unlock()
	s.bridge.ClearAudioOverride()
	return s.store.Replace(bundle.Theme), nil
}

func (s *Session) SaveTemplate(ctx context.Context, name string) (Template, error) {
	return s.deps.Templates.Save(ctx, s.UserID, name, s.store.Snapshot())
}

// LoadTemplate applies a saved look. Linked servers are not part of a
// look, so the current presence is kept.
func (s *Session) LoadTemplate(ctx context.Context, id string) (theme.Config, error) {
	tmpl, err := s.deps.Templates.Get(ctx, s.UserID, id)
	if err != nil {
		return s.store.Snapshot(), err
	}
	return s.store.Mutate(func(cfg *theme.Config) error {
		loaded := tmpl.Config.Clone()
		loaded.Presence = cfg.Presence
		*cfg = loaded
		return nil
	})
}

func (s *Session) Stats() UploadStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Upload stores a vault file. The limit is checked locally first; counts
// are always re-read from the upload service afterwards.
func (s *Session) Upload(ctx context.Context, upload Upload) (assets.VaultItem, error) {
	s.mu.Lock()
	full := s.hasStats && s.stats.Full()
	s.mu.Unlock()
	if full {
		return assets.VaultItem{}, ErrUploadLimit
	}

	item, err := s.deps.Uploads.Create(ctx, s.UserID, upload)
	s.afterVaultChange(ctx)
	if err != nil {
		return assets.VaultItem{}, err
	}
	return item, nil
}

func (s *Session) DeleteUpload(ctx context.Context, id string) error {
	err := s.deps.Uploads.Delete(ctx, s.UserID, id)
	s.afterVaultChange(ctx)
	return err
}

func (s *Session) DeleteUploads(ctx context.Context, ids []string) (int, error) {
	deleted, err := s.deps.Uploads.DeleteBatch(ctx, s.UserID, ids)
	s.afterVaultChange(ctx)
	return deleted, err
}

// InvalidateStore drops cached store items after a purchase.
func (s *Session) InvalidateStore(ctx context.Context) {
	s.catalogue.Invalidate(ctx, s.UserID, assets.SourceStore)
	s.refreshFrames(ctx)
}

// InvalidatePlatform drops cached platform media after the linked account
// changed.
func (s *Session) InvalidatePlatform(ctx context.Context) {
	s.catalogue.Invalidate(ctx, s.UserID, assets.SourcePlatform)
	s.refreshFrames(ctx)
}

func (s *Session) afterVaultChange(ctx context.Context) {
	s.catalogue.Invalidate(ctx, s.UserID, assets.SourceVault)
	if err := s.refreshStats(ctx); err != nil {
		logger.WarnWithUser(s.UserID, "editor_upload_stats_unavailable", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Session) refreshStats(ctx context.Context) error {
	stats, err := s.deps.Uploads.Stats(ctx, s.UserID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.stats = stats
	s.hasStats = true
	s.mu.Unlock()
	return nil
}

func (s *Session) refreshFrames(ctx context.Context) {
	list, err := s.catalogue.Resolve(ctx, s.UserID, assets.CategoryFrame)
	if err != nil {
		logger.WarnWithUser(s.UserID, "editor_frames_unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	s.setFrames(list)
}

func (s *Session) setFrames(list []assets.Asset) {
	s.inventoryMu.Lock()
	s.frames = append([]assets.Asset(nil), list...)
	s.inventoryMu.Unlock()
}

func (s *Session) lookupFrame(id string) (assets.Asset, bool) {
	s.inventoryMu.RLock()
	defer s.inventoryMu.RUnlock()
	for _, frame := range s.frames {
		if frame.ID() == id {
			return frame, true
		}
	}
	return assets.Asset{}, false
}
