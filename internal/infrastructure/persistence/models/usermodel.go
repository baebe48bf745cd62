package models

import "gorm.io/datatypes"

type UserModel struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:200;not null"`
	Name      string `gorm:"size:200"`
	Phone     string `gorm:"size:30"`
	Role      string `gorm:"size:50"`
	Active    bool   `gorm:"not null;default:true"`
	AdminArea string `gorm:"size:200"`
	CreatedAt int64  `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

// ProfileModel is the single row binding the logged-in user to this device's
// session token and sync preferences.
type ProfileModel struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"uniqueIndex;not null"`
	Token        string `gorm:"type:text;not null"`
	RefreshToken string `gorm:"type:text"`
	SyncPrefs    datatypes.JSON
	UpdatedAt    int64 `gorm:"not null"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}
