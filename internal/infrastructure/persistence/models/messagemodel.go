package models

type MessageModel struct {
	ID           uint   `gorm:"primaryKey"`
	Origin       string `gorm:"size:20;not null;index"`
	WAMessageID  string `gorm:"uniqueIndex;size:100;not null"`
	CustomerID   uint   `gorm:"not null;index:idx_messages_customer_created"`
	SenderUserID *uint  `gorm:"index"`
	Body         string `gorm:"type:text"`
	MessageType  string `gorm:"size:20;not null"`
	Status       string `gorm:"size:20;not null;index"`
	CreatedAt    int64  `gorm:"not null;index:idx_messages_customer_created"`
}

func (MessageModel) TableName() string {
	return "messages"
}
