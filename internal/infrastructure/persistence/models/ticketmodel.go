package models

type TicketModel struct {
	// ID is assigned by the remote service and mirrored locally so remote
	// and local identifiers stay aligned.
	ID               uint   `gorm:"primaryKey"`
	Number           string `gorm:"uniqueIndex;size:50;not null"`
	CustomerID       uint   `gorm:"not null;index"`
	FirstMessageID   string `gorm:"size:100"`
	ContextMessageID string `gorm:"size:100"`
	LastMessageID    string `gorm:"size:100"`
	Status           string `gorm:"size:20;not null;index"`
	// UnreadCount is client-local read state; remote refreshes must not
	// overwrite it for rows that already exist on the device.
	UnreadCount  int   `gorm:"not null;default:0"`
	ResolvedByID *uint `gorm:"index"`
	CreatedAt    int64 `gorm:"not null;index"`
	ResolvedAt   *int64

	// Relationships are enforced by the SQL schema (foreign_keys=on), not
	// by gorm associations.
}

func (TicketModel) TableName() string {
	return "tickets"
}
