package mappers

import (
	"time"

	"github.com/akvo/agriconnect-sub001/internal/domain/synclog"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
)

type SyncLogMapper interface {
	ToModel(e *synclog.Entry) *models.SyncLogModel
	ToDomain(model *models.SyncLogModel) (*synclog.Entry, error)
}

type SyncLogMapperImpl struct{}

func NewSyncLogMapper() SyncLogMapper {
	return &SyncLogMapperImpl{}
}

func (m *SyncLogMapperImpl) ToModel(e *synclog.Entry) *models.SyncLogModel {
	model := &models.SyncLogModel{
		ID:        e.ID(),
		Kind:      string(e.Kind()),
		Status:    e.Status().String(),
		Detail:    e.Detail(),
		StartedAt: e.StartedAt().UnixMilli(),
	}

	if e.FinishedAt() != nil {
		finished := e.FinishedAt().UnixMilli()
		model.FinishedAt = &finished
	}

	return model
}

func (m *SyncLogMapperImpl) ToDomain(model *models.SyncLogModel) (*synclog.Entry, error) {
	var finishedAt *time.Time
	if model.FinishedAt != nil {
		t := time.UnixMilli(*model.FinishedAt)
		finishedAt = &t
	}

	return synclog.ReconstructEntry(
		model.ID,
		synclog.Kind(model.Kind),
		synclog.Status(model.Status),
		model.Detail,
		time.UnixMilli(model.StartedAt),
		finishedAt,
	)
}
