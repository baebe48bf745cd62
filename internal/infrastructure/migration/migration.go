package migration

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/shared/constants"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// Manager handles local store migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager creates a new migration manager
func NewManager(environment string) *Manager {
	var strategy Strategy

	switch strings.ToLower(environment) {
	case constants.EnvDevelopment:
		strategy = NewGormAutoMigrateStrategy()
	default:
		strategy = NewGooseStrategy()
	}

	return &Manager{
		strategy: strategy,
		logger:   logger.NewLogger().With("component", "migration.manager"),
	}
}

// NewManagerWithStrategy creates a new migration manager with a specific strategy
func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.NewLogger().With("component", "migration.manager"),
	}
}

// Migrate brings the local store up to the current schema version. When the
// existing schema no longer matches what the recorded version promises (a
// partially created or hand-edited database), the store is rebuilt from
// scratch; local data is lost but the remote service remains the source of
// truth for everything except unsent drafts.
func (m *Manager) Migrate(db *gorm.DB, models ...interface{}) error {
	m.logger.Infow("starting local store migration",
		"strategy", m.strategy.GetName())

	if err := m.Validate(db); err != nil {
		m.logger.Warnw("schema drift detected, rebuilding local store; local data will be lost",
			"reason", err.Error())
		if err := m.Rebuild(db, models...); err != nil {
			return fmt.Errorf("failed to rebuild local store: %w", err)
		}
		return nil
	}

	if err := m.strategy.Migrate(db, models...); err != nil {
		m.logger.Errorw("migration failed",
			"strategy", m.strategy.GetName(),
			"error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	m.logger.Infow("local store migration completed",
		"strategy", m.strategy.GetName())

	return nil
}

// Rebuild drops every known table, including the version bookkeeping, and
// reapplies the full migration chain.
func (m *Manager) Rebuild(db *gorm.DB, models ...interface{}) error {
	migrator := db.Migrator()

	// Children before parents, so foreign key enforcement never blocks the
	// drops.
	tables := []string{"messages", "tickets", "profiles", "sync_logs", "customers", "users", "goose_db_version"}
	for _, table := range tables {
		if !migrator.HasTable(table) {
			continue
		}
		if err := migrator.DropTable(table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	m.logger.Infow("local store dropped, reapplying migrations")

	if err := m.strategy.Migrate(db, models...); err != nil {
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}

	return nil
}

// GetStrategy returns the current migration strategy
func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}

// SetStrategy sets a new migration strategy
func (m *Manager) SetStrategy(strategy Strategy) {
	m.logger.Infow("changing migration strategy",
		"from", m.strategy.GetName(),
		"to", strategy.GetName())
	m.strategy = strategy
}
