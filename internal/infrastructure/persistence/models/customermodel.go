package models

type CustomerModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:200"`
	Phone     string `gorm:"uniqueIndex;size:30;not null"`
	Language  string `gorm:"size:20"`
	Gender    string `gorm:"size:20"`
	Age       *int
	Location  string `gorm:"size:200"`
	CreatedAt int64  `gorm:"not null"`
}

func (CustomerModel) TableName() string {
	return "customers"
}
