package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog rows are written once and never updated, so they carry no
// UpdatedAt or soft delete.
type AuditLog struct {
	ID           uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID             `json:"userID,omitempty" gorm:"type:uuid;index"`
	Action       string                 `json:"action" gorm:"type:varchar(50);not null;index"`
	ResourceType string                 `json:"resourceType" gorm:"type:varchar(30);not null"`
	ResourceID   string                 `json:"resourceID,omitempty" gorm:"type:varchar(64)"`
	Details      map[string]interface{} `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	IPAddress    string                 `json:"ipAddress" gorm:"type:varchar(45);not null;default:''"`
	RequestID    string                 `json:"requestID,omitempty" gorm:"type:varchar(36)"`
	CreatedAt    time.Time              `json:"createdAt" gorm:"not null;index"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

// AuditExportCursor remembers where the last export to object storage
// stopped.
type AuditExportCursor struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LastExportAt  time.Time `json:"lastExportAt" gorm:"not null"`
	ExportedCount int64     `json:"exportedCount" gorm:"not null;default:0"`
}

func (a *AuditExportCursor) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&StoreItem{},
		&StoreOwnership{},
		&VaultItem{},
		&LinkedAccount{},
		&Template{},
		&AuditLog{},
		&AuditExportCursor{},
	}
}
