package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrStoreItemNotFound = errors.New("store item not found")
	ErrAlreadyOwned      = errors.New("item already owned")
)

// StoreService reads the curated catalogue and records ownership. Billing
// happens elsewhere; Purchase only grants the item.
type StoreService struct {
	DB *gorm.DB
}

func NewStoreService(db *gorm.DB) *StoreService {
	return &StoreService{DB: db}
}

func toStoreAsset(item models.StoreItem, owned bool) assets.StoreItem {
	return assets.StoreItem{
		ID:       item.Slug,
		Name:     item.Name,
		ImageURL: item.ImageURL,
		Rarity:   item.Rarity,
		Type:     assets.Category(item.Category),
		Owned:    owned,
	}
}

func (s *StoreService) OwnedByCategory(ctx context.Context, userID string, category assets.Category) ([]assets.StoreItem, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	var items []models.StoreItem
	err = s.DB.WithContext(ctx).
		Joins("JOIN store_ownerships ON store_ownerships.store_item_id = store_items.id AND store_ownerships.deleted_at IS NULL").
		Where("store_ownerships.user_id = ? AND store_items.category = ?", uid, string(category)).
		Order("store_ownerships.created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	out := make([]assets.StoreItem, 0, len(items))
	for _, item := range items {
		out = append(out, toStoreAsset(item, true))
	}
	return out, nil
}

// Catalogue lists every store item with the caller's ownership marked.
func (s *StoreService) Catalogue(ctx context.Context, userID uuid.UUID, category string) ([]assets.StoreItem, error) {
	query := s.DB.WithContext(ctx).Order("category ASC, price ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var items []models.StoreItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}

	var ownedIDs []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.StoreOwnership{}).
		Where("user_id = ?", userID).
		Pluck("store_item_id", &ownedIDs).Error; err != nil {
		return nil, err
	}
	owned := make(map[uuid.UUID]bool, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = true
	}

	out := make([]assets.StoreItem, 0, len(items))
	for _, item := range items {
		out = append(out, toStoreAsset(item, owned[item.ID]))
	}
	return out, nil
}

func (s *StoreService) FindBySlug(ctx context.Context, slug string) (*models.StoreItem, error) {
	var item models.StoreItem
	if err := s.DB.WithContext(ctx).Where("slug = ?", slug).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Purchase grants slug to the user.
func (s *StoreService) Purchase(ctx context.Context, userID uuid.UUID, slug string) (assets.StoreItem, error) {
	item, err := s.FindBySlug(ctx, slug)
	if err != nil {
		return assets.StoreItem{}, err
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.StoreOwnership{}).
		Where("user_id = ? AND store_item_id = ?", userID, item.ID).
		Count(&existing).Error; err != nil {
		return assets.StoreItem{}, err
	}
	if existing > 0 {
		return toStoreAsset(*item, true), ErrAlreadyOwned
	}

	if err := s.DB.WithContext(ctx).Create(&models.StoreOwnership{UserID: userID, StoreItemID: item.ID}).Error; err != nil {
		return assets.StoreItem{}, err
	}

	logger.InfoWithUser(userID.String(), "store_item_purchased", map[string]interface{}{
		"slug":     item.Slug,
		"category": item.Category,
		"price":    item.Price,
	})
	return toStoreAsset(*item, true), nil
}
