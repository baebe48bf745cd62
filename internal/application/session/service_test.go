package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/repository"
	"github.com/akvo/agriconnect-sub001/internal/shared/config"
	apperrors "github.com/akvo/agriconnect-sub001/internal/shared/errors"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

type fakeRemote struct {
	profile   *api.ProfileDTO
	err       error
	tokenSeen string
	authCalls int
	bootCalls int
}

func (f *fakeRemote) GetProfile(ctx context.Context) (*api.ProfileDTO, error) {
	f.authCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeRemote) GetProfileWithToken(ctx context.Context, token string) (*api.ProfileDTO, error) {
	f.bootCalls++
	f.tokenSeen = token
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fixture struct {
	gdb      *gorm.DB
	profiles *repository.ProfileRepository
	users    *repository.UserRepository
	remote   *fakeRemote
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// File DSN with foreign keys enforced, as production opens the store.
	dbCfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db")}
	gdb, err := gorm.Open(sqlite.Open(dbCfg.GetDSN()), &gorm.Config{})
	require.NoError(t, err)

	manager := migration.NewManagerWithStrategy(migration.NewGooseStrategy())
	require.NoError(t, manager.Migrate(gdb))

	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	users := repository.NewUserRepository(gdb, log)
	profiles := repository.NewProfileRepository(gdb, log)
	remote := &fakeRemote{
		profile: &api.ProfileDTO{
			User:      api.UserDTO{ID: 3, Email: "officer@akvo.org", Name: "Neema", Active: true},
			SyncPrefs: user.SyncPrefs{AutoCatchUp: true, WifiOnlyImages: true},
		},
	}

	svc := NewService(users, profiles, remote, gdb, manager, log)
	return &fixture{gdb: gdb, profiles: profiles, users: users, remote: remote, svc: svc}
}

func TestService_Establish(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the user and profile rows", func(t *testing.T) {
		f := newFixture(t)

		profile, err := f.svc.Establish(ctx, "tok-1", "ref-1")
		require.NoError(t, err)

		assert.Equal(t, 1, f.remote.bootCalls)
		assert.Zero(t, f.remote.authCalls, "bootstrap must use the explicit token")
		assert.Equal(t, "tok-1", f.remote.tokenSeen)

		assert.Equal(t, uint(3), profile.UserID())
		assert.True(t, profile.Prefs().WifiOnlyImages)

		stored, err := f.profiles.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", stored.Token())
		assert.Equal(t, "ref-1", stored.RefreshToken())

		u, err := f.users.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Neema", u.Name())
	})

	t.Run("empty token is rejected without a network call", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Establish(ctx, "", "ref-1")
		require.Error(t, err)
		assert.Zero(t, f.remote.bootCalls)
	})

	t.Run("remote rejection stores nothing", func(t *testing.T) {
		f := newFixture(t)
		f.remote.err = apperrors.NewUnauthorizedError("bad token")

		_, err := f.svc.Establish(ctx, "tok-1", "ref-1")
		assert.True(t, apperrors.IsUnauthorized(err))

		_, err = f.profiles.Get(ctx)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_SyncProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("updates prefs and user, keeps the token pair", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Establish(ctx, "tok-1", "ref-1")
		require.NoError(t, err)

		f.remote.profile.User.Name = "Neema M."
		f.remote.profile.SyncPrefs = user.SyncPrefs{AutoCatchUp: false}

		profile, err := f.svc.SyncProfile(ctx)
		require.NoError(t, err)

		assert.Equal(t, "tok-1", profile.Token())
		assert.False(t, profile.Prefs().AutoCatchUp)

		u, err := f.users.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Neema M.", u.Name())
	})

	t.Run("no session to sync", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.SyncProfile(ctx)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_Wipe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Establish(ctx, "tok-1", "ref-1")
	require.NoError(t, err)

	c, err := customer.ReconstructCustomer(10, "Amina", "+255700000001", "", "", nil, "", time.Now())
	require.NoError(t, err)
	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, repository.NewCustomerRepository(f.gdb, log).Save(ctx, c))

	require.NoError(t, f.svc.Wipe(ctx))

	_, err = f.profiles.Get(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	var count int64
	require.NoError(t, f.gdb.Table("customers").Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// The store remains usable after the wipe.
	_, err = f.svc.Establish(ctx, "tok-2", "ref-2")
	assert.NoError(t, err)
}
