package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	"github.com/akvo/agriconnect-sub001/internal/shared/config"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// setupTestDB opens a store the way production does: the goose schema over
// a file DSN with foreign keys on, so constraint violations fail here too.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "store.db")}
	gdb, err := gorm.Open(sqlite.Open(cfg.GetDSN()), &gorm.Config{})
	require.NoError(t, err)

	manager := migration.NewManagerWithStrategy(migration.NewGooseStrategy())
	require.NoError(t, manager.Migrate(gdb))
	return gdb
}

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedCustomer(t *testing.T, gdb *gorm.DB, id uint, name, phone string) *customer.Customer {
	t.Helper()

	c, err := customer.ReconstructCustomer(id, name, phone, "", "", nil, "", time.Now())
	require.NoError(t, err)

	repo := NewCustomerRepository(gdb, testLogger())
	require.NoError(t, repo.Save(context.Background(), c))
	return c
}

func seedUser(t *testing.T, gdb *gorm.DB, id uint, email, name string) *user.User {
	t.Helper()

	u, err := user.NewUser(id, email, name)
	require.NoError(t, err)

	repo := NewUserRepository(gdb, testLogger())
	require.NoError(t, repo.Save(context.Background(), u))
	return u
}
