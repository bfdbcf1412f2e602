package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProfileLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

type ProfileSocial struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type ProfileBadge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Profile is the public page of one user. Theme holds the raw stored
// payload; it is normalized on every read.
type Profile struct {
	BaseModel
	UserID          uuid.UUID       `json:"userID" gorm:"type:uuid;uniqueIndex;not null"`
	Bio             string          `json:"bio" gorm:"type:text;not null;default:''"`
	Theme           datatypes.JSON  `json:"theme" gorm:"not null"`
	Frame           *string         `json:"frame,omitempty" gorm:"type:text"`
	Links           []ProfileLink   `json:"links" gorm:"type:jsonb;serializer:json"`
	Socials         []ProfileSocial `json:"socials" gorm:"type:jsonb;serializer:json"`
	Badges          []ProfileBadge  `json:"badges" gorm:"type:jsonb;serializer:json"`
	DisplayedBadges []string        `json:"displayedBadges" gorm:"type:jsonb;serializer:json"`
	NSFW            bool            `json:"nsfw" gorm:"not null;default:false"`
	Views           int64           `json:"views" gorm:"not null;default:0"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

func (Profile) TableName() string {
	return "profiles"
}
