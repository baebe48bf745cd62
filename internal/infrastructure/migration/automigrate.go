package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/infrastructure/persistence/models"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// GormAutoMigrateStrategy derives the schema from the model structs. Used in
// development only; it cannot express the versioned evolution the SQL steps
// carry.
type GormAutoMigrateStrategy struct {
	logger logger.Interface
}

func NewGormAutoMigrateStrategy() Strategy {
	return &GormAutoMigrateStrategy{
		logger: logger.NewLogger().With("component", "migration.automigrate"),
	}
}

func (s *GormAutoMigrateStrategy) Migrate(db *gorm.DB, modelList ...interface{}) error {
	if len(modelList) == 0 {
		modelList = AutoMigrateModels()
	}

	s.logger.Infow("starting auto migration", "models_count", len(modelList))

	if err := db.AutoMigrate(modelList...); err != nil {
		s.logger.Errorw("auto migration failed", "error", err)
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	s.logger.Infow("auto migration completed successfully")
	return nil
}

func (s *GormAutoMigrateStrategy) GetName() string {
	return "gorm_auto_migrate"
}

// AutoMigrateModels lists every persisted model in dependency order.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.CustomerModel{},
		&models.UserModel{},
		&models.ProfileModel{},
		&models.TicketModel{},
		&models.MessageModel{},
		&models.SyncLogModel{},
	}
}
