package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/mappers"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// ProfileRepository owns the single profile row for this device. Save
// replaces whatever profile exists so a new login cleanly supersedes the
// previous session.
type ProfileRepository struct {
	db     *gorm.DB
	mapper mappers.UserMapper
	logger logger.Interface
}

func NewProfileRepository(database *gorm.DB, log logger.Interface) *ProfileRepository {
	return &ProfileRepository{
		db:     database,
		mapper: mappers.NewUserMapper(),
		logger: log.Named("repository.profile"),
	}
}

func (r *ProfileRepository) Save(ctx context.Context, p *user.Profile) error {
	model, err := r.mapper.ProfileToModel(p)
	if err != nil {
		return err
	}

	tx := db.GetTxFromContext(ctx, r.db)
	err = tx.Transaction(func(inner *gorm.DB) error {
		if err := inner.Where("1 = 1").Delete(&models.ProfileModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous profile: %w", err)
		}
		if err := inner.Create(model).Error; err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("save failed", "entity", "profile", "user_id", p.UserID(), "error", err)
		return err
	}

	return nil
}

func (r *ProfileRepository) Get(ctx context.Context) (*user.Profile, error) {
	var model models.ProfileModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("no profile on this device")
		}
		r.logger.Errorw("find failed", "entity", "profile", "error", err)
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return r.mapper.ProfileToDomain(&model)
}

func (r *ProfileRepository) Delete(ctx context.Context) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Where("1 = 1").Delete(&models.ProfileModel{}).Error; err != nil {
		r.logger.Errorw("delete failed", "entity", "profile", "error", err)
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
