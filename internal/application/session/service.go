// Package session manages the device session: establishing it from issued
// credentials, keeping the profile in sync with the remote service, and
// wiping all local data on logout.
package session

import (
	"context"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// RemoteClient is the slice of the API client this service needs.
type RemoteClient interface {
	GetProfile(ctx context.Context) (*api.ProfileDTO, error)
	GetProfileWithToken(ctx context.Context, token string) (*api.ProfileDTO, error)
}

type Service struct {
	users    user.Repository
	profiles user.ProfileRepository
	remote   RemoteClient
	db       *gorm.DB
	migrator *migration.Manager
	logger   logger.Interface
}

func NewService(
	users user.Repository,
	profiles user.ProfileRepository,
	remote RemoteClient,
	database *gorm.DB,
	migrator *migration.Manager,
	log logger.Interface,
) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		remote:   remote,
		db:       database,
		migrator: migrator,
		logger:   log.Named("session"),
	}
}

// Establish stores a freshly issued credential pair and seeds the local user
// and profile rows from the remote profile. Called once after sign-in.
func (s *Service) Establish(ctx context.Context, token, refreshToken string) (*user.Profile, error) {
	if token == "" {
		return nil, apperrors.NewValidationError("session token is required")
	}

	// The credential is not persisted yet, so the bootstrap fetch cannot go
	// through the stored-profile credential source.
	dto, err := s.remote.GetProfileWithToken(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := dto.User.ToDomain()
	if err != nil {
		return nil, apperrors.NewSyncError("remote returned invalid profile").WithCause(err)
	}
	if _, err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}

	profile, err := user.NewProfile(u.ID(), token, refreshToken)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid session credentials", err.Error())
	}
	profile.SetPrefs(dto.SyncPrefs)

	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Infow("session established", "user_id", u.ID())
	return profile, nil
}

// SyncProfile refreshes the local user row and sync preferences from the
// remote profile. The stored credential pair is left untouched.
func (s *Service) SyncProfile(ctx context.Context) (*user.Profile, error) {
	profile, err := s.profiles.Get(ctx)
	if err != nil {
		return nil, err
	}

	dto, err := s.remote.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	u, err := dto.User.ToDomain()
	if err != nil {
		return nil, apperrors.NewSyncError("remote returned invalid profile").WithCause(err)
	}
	if _, err := s.users.Upsert(ctx, u); err != nil {
		return nil, err
	}

	profile.SetPrefs(dto.SyncPrefs)
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Infow("profile synced", "user_id", u.ID())
	return profile, nil
}

// Wipe removes every locally stored row, resets the schema version, and
// reapplies the migration chain, leaving an empty but usable store. Called
// on logout; there is no way back.
func (s *Service) Wipe(ctx context.Context) error {
	s.logger.Warnw("wiping local store")

	if err := s.migrator.Rebuild(s.db.WithContext(ctx)); err != nil {
		return apperrors.NewMigrationError("wipe failed", err.Error()).WithCause(err)
	}

	s.logger.Infow("local store wiped")
	return nil
}
