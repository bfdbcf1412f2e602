package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Template struct {
	BaseModel
	UserID uuid.UUID      `json:"userID" gorm:"type:uuid;not null;index"`
	Name   string         `json:"name" gorm:"type:varchar(100);not null"`
	Config datatypes.JSON `json:"config" gorm:"not null"`
}
