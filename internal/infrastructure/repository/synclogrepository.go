package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/synclog"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/mappers"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type SyncLogRepository struct {
	db     *gorm.DB
	mapper mappers.SyncLogMapper
	logger logger.Interface
}

func NewSyncLogRepository(database *gorm.DB, log logger.Interface) *SyncLogRepository {
	return &SyncLogRepository{
		db:     database,
		mapper: mappers.NewSyncLogMapper(),
		logger: log.Named("repository.synclog"),
	}
}

func (r *SyncLogRepository) Save(ctx context.Context, e *synclog.Entry) error {
	model := r.mapper.ToModel(e)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("save failed", "entity", "synclog", "kind", e.Kind(), "error", err)
		return fmt.Errorf("failed to save sync log entry: %w", err)
	}

	if e.ID() == 0 {
		if err := e.SetID(model.ID); err != nil {
			return err
		}
	}

	return nil
}

func (r *SyncLogRepository) Update(ctx context.Context, e *synclog.Entry) error {
	model := r.mapper.ToModel(e)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.SyncLogModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Updates(model)

	if result.Error != nil {
		r.logger.Errorw("update failed", "entity", "synclog", "entry_id", e.ID(), "error", result.Error)
		return fmt.Errorf("failed to update sync log entry: %w", result.Error)
	}

	return nil
}

func (r *SyncLogRepository) GetByID(ctx context.Context, id uint) (*synclog.Entry, error) {
	var model models.SyncLogModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("sync log entry not found")
		}
		r.logger.Errorw("find failed", "entity", "synclog", "entry_id", id, "error", err)
		return nil, fmt.Errorf("failed to find sync log entry: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]*synclog.Entry, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	query := tx.Model(&models.SyncLogModel{}).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.SyncLogModel
	if err := query.Find(&rows).Error; err != nil {
		r.logger.Errorw("list failed", "entity", "synclog", "operation", "list_recent", "error", err)
		return nil, fmt.Errorf("failed to list sync log entries: %w", err)
	}

	result := make([]*synclog.Entry, 0, len(rows))
	for i := range rows {
		e, err := r.mapper.ToDomain(&rows[i])
		if err != nil {
			r.logger.Warnw("skipping invalid sync log row", "entity", "synclog", "entry_id", rows[i].ID, "error", err)
			continue
		}
		result = append(result, e)
	}

	return result, nil
}

func (r *SyncLogRepository) LastCompleted(ctx context.Context, kind synclog.Kind) (*synclog.Entry, error) {
	var model models.SyncLogModel
	tx := db.GetTxFromContext(ctx, r.db)

	err := tx.
		Where("kind = ? AND status = ?", string(kind), synclog.StatusCompleted.String()).
		Order("started_at DESC").
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("no completed sync of this kind")
		}
		r.logger.Errorw("find failed", "entity", "synclog", "operation", "last_completed", "kind", kind, "error", err)
		return nil, fmt.Errorf("failed to find last completed sync: %w", err)
	}

	return r.mapper.ToDomain(&model)
}
