package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/storage"
	"github.com/persona/backend/pkg/logger"
	"gorm.io/gorm"
)

const mediaURLExpiry = 15 * time.Minute

var (
	ErrUploadNotFound   = errors.New("upload not found")
	ErrUploadTooLarge   = errors.New("file exceeds the upload size limit")
	ErrUnsupportedMedia = errors.New("file type does not match the upload category")
)

// UploadService keeps the user's vault: rows in the database, bytes in
// object storage.
type UploadService struct {
	DB      *gorm.DB
	Storage storage.ObjectStore
	Limits  config.LimitsConfig
}

func NewUploadService(db *gorm.DB, store storage.ObjectStore, limits config.LimitsConfig) *UploadService {
	return &UploadService{DB: db, Storage: store, Limits: limits}
}

// MediaPath is the stable URL a vault item is served from.
func MediaPath(id uuid.UUID) string {
	return "/api/media/" + id.String()
}

func toVaultAsset(item models.VaultItem) assets.VaultItem {
	return assets.VaultItem{
		ID:        item.ID.String(),
		Name:      item.Name,
		URL:       MediaPath(item.ID),
		Type:      assets.VaultType(item.Type),
		CreatedAt: item.CreatedAt,
	}
}

func (s *UploadService) ListVault(ctx context.Context, userID string) ([]assets.VaultItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	var rows []models.VaultItem
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", uid).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]assets.VaultItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, toVaultAsset(row))
	}
	return out, nil
}

func (s *UploadService) Stats(ctx context.Context, userID string) (editor.UploadStats, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return editor.UploadStats{}, err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Select("id", "role", "premium").First(&user, "id = ?", uid).Error; err != nil {
		return editor.UploadStats{}, err
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.VaultItem{}).Where("owner_id = ?", uid).Count(&count).Error; err != nil {
		return editor.UploadStats{}, err
	}

	limit := s.Limits.FreeUploads
	if user.Premium {
		limit = s.Limits.PremiumUploads
	}
	return editor.UploadStats{UploadCount: int(count), Limit: limit, IsAdmin: user.IsAdmin()}, nil
}

// mediaMatches reports whether contentType fits the vault type. Cursors may
// be any image.
func mediaMatches(vaultType assets.VaultType, contentType string) bool {
	major, _, _ := strings.Cut(contentType, "/")
	switch vaultType {
	case assets.VaultImage, assets.VaultCursor:
		return major == "image"
	case assets.VaultVideo:
		return major == "video"
	case assets.VaultAudio:
		return major == "audio"
	}
	return false
}

func (s *UploadService) Create(ctx context.Context, userID string, upload editor.Upload) (assets.VaultItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return assets.VaultItem{}, err
	}
	if s.Limits.MaxUploadBytes > 0 && upload.Size > s.Limits.MaxUploadBytes {
		return assets.VaultItem{}, ErrUploadTooLarge
	}

	filename := filepath.Base(upload.Filename)
	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if !mediaMatches(upload.Type, contentType) {
		return assets.VaultItem{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return assets.VaultItem{}, err
	}
	if stats.Full() {
		return assets.VaultItem{}, editor.ErrUploadLimit
	}

	name := strings.TrimSpace(upload.Name)
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	itemID := uuid.New()
	objectName := fmt.Sprintf("vault/%s/%s/%s", uid.String(), itemID.String(), filename)
	if err := s.Storage.Upload(ctx, objectName, upload.Body, upload.Size, contentType); err != nil {
		return assets.VaultItem{}, fmt.Errorf("storing upload: %w", err)
	}

	row := models.VaultItem{
		BaseModel:   models.BaseModel{ID: itemID},
		OwnerID:     uid,
		Name:        name,
		Type:        string(upload.Type),
		MimeType:    contentType,
		Size:        upload.Size,
		StoragePath: objectName,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		_ = s.Storage.Delete(ctx, objectName)
		return assets.VaultItem{}, err
	}

	logger.InfoWithUser(userID, "vault_item_uploaded", map[string]interface{}{
		"vault_item_id": itemID.String(),
		"type":          row.Type,
		"size":          row.Size,
	})
	return toVaultAsset(row), nil
}

func (s *UploadService) Delete(ctx context.Context, userID, id string) error {
	deleted, err := s.DeleteBatch(ctx, userID, []string{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// DeleteBatch removes the caller's items among ids and returns how many it
// removed. Ids that are malformed or owned by someone else are skipped.
func (s *UploadService) DeleteBatch(ctx context.Context, userID string, ids []string) (int, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, err
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		if id, err := uuid.Parse(raw); err == nil {
			parsed = append(parsed, id)
		}
	}
	if len(parsed) == 0 {
		return 0, nil
	}

	var rows []models.VaultItem
	if err := s.DB.WithContext(ctx).Where("owner_id = ? AND id IN ?", uid, parsed).Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	ownedIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ownedIDs = append(ownedIDs, row.ID)
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", ownedIDs).Delete(&models.VaultItem{}).Error; err != nil {
		return 0, err
	}

	for _, row := range rows {
		if err := s.Storage.Delete(ctx, row.StoragePath); err != nil {
			logger.WarnWithUser(userID, "vault_object_delete_failed", map[string]interface{}{
				"vault_item_id": row.ID.String(),
				"error":         err.Error(),
			})
		}
	}

	logger.InfoWithUser(userID, "vault_items_deleted", map[string]interface{}{"count": len(rows)})
	return len(rows), nil
}

// MediaURL signs a download URL for a vault item. Anyone holding the id may
// fetch it.
func (s *UploadService) MediaURL(ctx context.Context, id uuid.UUID) (string, error) {
	var row models.VaultItem
	if err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUploadNotFound
		}
		return "", err
	}
	return s.Storage.PresignedGetURL(ctx, row.StoragePath, mediaURLExpiry, row.MimeType)
}
