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

type UserRepository struct {
	db     *gorm.DB
	mapper mappers.UserMapper
	logger logger.Interface
}

func NewUserRepository(database *gorm.DB, log logger.Interface) *UserRepository {
	return &UserRepository{
		db:     database,
		mapper: mappers.NewUserMapper(),
		logger: log.Named("repository.user"),
	}
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	model := r.mapper.ToModel(u)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Create(model).Error; err != nil {
		r.logger.Errorw("save failed", "entity", "user", "user_id", u.ID(), "error", err)
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	model := r.mapper.ToModel(u)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.
		Model(&models.UserModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Updates(model)

	if result.Error != nil {
		r.logger.Errorw("update failed", "entity", "user", "user_id", u.ID(), "error", result.Error)
		return fmt.Errorf("failed to update user: %w", result.Error)
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Delete(&models.UserModel{}, userID)
	if result.Error != nil {
		r.logger.Errorw("delete failed", "entity", "user", "user_id", userID, "error", result.Error)
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewNotFoundError("user not found")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uint) (*user.User, error) {
	var model models.UserModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, userID).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("user not found")
		}
		r.logger.Errorw("find failed", "entity", "user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model models.UserModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Where("email = ?", email).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NewNotFoundError("user not found")
		}
		r.logger.Errorw("find failed", "entity", "user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// Upsert inserts the user on first sighting or merges remote profile fields
// into the known record. Lookup is by remote id first, then by email.
func (r *UserRepository) Upsert(ctx context.Context, u *user.User) (*user.User, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var existing models.UserModel
	found := false

	err := tx.First(&existing, u.ID()).Error
	if err == nil {
		found = true
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user by id: %w", err)
	}

	if !found {
		err := tx.Where("email = ?", u.Email()).First(&existing).Error
		if err == nil {
			found = true
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	if !found {
		model := r.mapper.ToModel(u)
		if err := tx.Create(model).Error; err != nil {
			r.logger.Errorw("upsert insert failed", "entity", "user", "user_id", u.ID(), "error", err)
			return nil, fmt.Errorf("failed to insert user: %w", err)
		}
		return u, nil
	}

	current, err := r.mapper.ToDomain(&existing)
	if err != nil {
		return nil, err
	}

	current.ApplyProfile(u.Name(), u.Phone(), u.Role(), u.AdminArea(), u.IsActive())

	model := r.mapper.ToModel(current)
	result := tx.
		Model(&models.UserModel{}).
		Where("id = ?", existing.ID).
		Select("*").
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("upsert update failed", "entity", "user", "user_id", existing.ID, "error", result.Error)
		return nil, fmt.Errorf("failed to update user: %w", result.Error)
	}

	return current, nil
}
