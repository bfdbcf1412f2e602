package models

import "github.com/google/uuid"

// StoreItem is a curated cosmetic sold in the store. Slug is the id the
// theme refers to (for example the selected frame).
type StoreItem struct {
	BaseModel
	Slug     string `json:"slug" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name     string `json:"name" gorm:"type:varchar(100);not null"`
	ImageURL string `json:"imageUrl" gorm:"type:text;not null"`
	Rarity   string `json:"rarity" gorm:"type:varchar(20);not null;default:'common'"`
	Category string `json:"category" gorm:"type:varchar(20);not null;index"`
	Price    int    `json:"price" gorm:"not null;default:0"`
}

type StoreOwnership struct {
	BaseModel
	UserID      uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_owner_item"`
	StoreItemID uuid.UUID `json:"storeItemID" gorm:"type:uuid;not null;uniqueIndex:idx_owner_item"`

	StoreItem StoreItem `json:"storeItem,omitempty" gorm:"foreignKey:StoreItemID;references:ID"`
}
