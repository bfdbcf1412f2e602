package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LinkedAccount is an external platform account connected through OAuth.
// ProfileData keeps the provider's last user payload as returned.
type LinkedAccount struct {
	BaseModel
	UserID       uuid.UUID      `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_user_provider"`
	Provider     string         `json:"provider" gorm:"type:varchar(30);not null;uniqueIndex:idx_user_provider"`
	ExternalID   string         `json:"externalID" gorm:"type:varchar(64);not null"`
	AccessToken  string         `json:"-" gorm:"type:text"`
	RefreshToken string         `json:"-" gorm:"type:text"`
	ExpiresAt    *time.Time     `json:"-"`
	ProfileData  datatypes.JSON `json:"profileData"`
}
