package models

type SyncLogModel struct {
	ID         uint   `gorm:"primaryKey"`
	Kind       string `gorm:"size:50;not null;index"`
	Status     string `gorm:"size:20;not null;index"`
	Detail     string `gorm:"type:text"`
	StartedAt  int64  `gorm:"not null;index"`
	FinishedAt *int64
}

func (SyncLogModel) TableName() string {
	return "sync_logs"
}
