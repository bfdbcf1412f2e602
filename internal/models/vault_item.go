package models

import "github.com/google/uuid"

type VaultItem struct {
	BaseModel
	OwnerID     uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Type        string    `json:"type" gorm:"type:varchar(20);not null"`
	MimeType    string    `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	StoragePath string    `json:"-" gorm:"type:text;not null"`
}
