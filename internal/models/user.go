package models

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	BaseModel
	Username     string   `json:"username" gorm:"type:varchar(32);uniqueIndex;not null"`
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	DisplayName  string   `json:"displayName" gorm:"type:varchar(64);not null;default:''"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	Premium      bool     `json:"premium" gorm:"not null;default:false"`
	AvatarURL    string   `json:"avatarUrl" gorm:"type:text;not null;default:''"`
	Profile      *Profile `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
