package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/shared/errors"
)

func TestProfileRepository_SingleRow(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewProfileRepository(gdb, testLogger())
	ctx := context.Background()

	seedUser(t, gdb, 3, "officer@akvo.org", "Neema")
	seedUser(t, gdb, 4, "other@akvo.org", "Baraka")

	t.Run("empty device has no profile", func(t *testing.T) {
		_, err := repo.Get(ctx)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("save then get round-trips", func(t *testing.T) {
		p, err := user.NewProfile(3, "tok-a", "ref-a")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint(3), found.UserID())
		assert.Equal(t, "tok-a", found.Token())
		assert.Equal(t, "ref-a", found.RefreshToken())
		assert.True(t, found.Prefs().AutoCatchUp)
	})

	t.Run("a new login replaces the previous session", func(t *testing.T) {
		p, err := user.NewProfile(4, "tok-b", "ref-b")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint(4), found.UserID())

		var count int64
		require.NoError(t, gdb.Table("profiles").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("delete clears the session", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx))

		_, err := repo.Get(ctx)
		assert.True(t, errors.IsNotFound(err))
	})
}
