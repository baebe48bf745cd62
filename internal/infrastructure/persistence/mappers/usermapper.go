package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
)

type UserMapper interface {
	ToModel(u *user.User) *models.UserModel
	ToDomain(model *models.UserModel) (*user.User, error)
	ProfileToModel(p *user.Profile) (*models.ProfileModel, error)
	ProfileToDomain(model *models.ProfileModel) (*user.Profile, error)
}

type UserMapperImpl struct{}

func NewUserMapper() UserMapper {
	return &UserMapperImpl{}
}

func (m *UserMapperImpl) ToModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:        u.ID(),
		Email:     u.Email(),
		Name:      u.Name(),
		Phone:     u.Phone(),
		Role:      u.Role(),
		Active:    u.IsActive(),
		AdminArea: u.AdminArea(),
		CreatedAt: u.CreatedAt().UnixMilli(),
	}
}

func (m *UserMapperImpl) ToDomain(model *models.UserModel) (*user.User, error) {
	return user.ReconstructUser(
		model.ID,
		model.Email,
		model.Name,
		model.Phone,
		model.Role,
		model.Active,
		model.AdminArea,
		time.UnixMilli(model.CreatedAt),
	)
}

func (m *UserMapperImpl) ProfileToModel(p *user.Profile) (*models.ProfileModel, error) {
	prefs, err := json.Marshal(p.Prefs())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sync prefs: %w", err)
	}

	return &models.ProfileModel{
		UserID:       p.UserID(),
		Token:        p.Token(),
		RefreshToken: p.RefreshToken(),
		SyncPrefs:    datatypes.JSON(prefs),
		UpdatedAt:    p.UpdatedAt().UnixMilli(),
	}, nil
}

func (m *UserMapperImpl) ProfileToDomain(model *models.ProfileModel) (*user.Profile, error) {
	var prefs user.SyncPrefs
	if len(model.SyncPrefs) > 0 {
		if err := json.Unmarshal(model.SyncPrefs, &prefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sync prefs: %w", err)
		}
	}

	return user.ReconstructProfile(
		model.UserID,
		model.Token,
		model.RefreshToken,
		prefs,
		time.UnixMilli(model.UpdatedAt),
	)
}
