package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/shared/constants"
)

// tableSpec records which schema version introduced a table and each of its
// columns. Validation only checks what the recorded version claims to have
// applied; a fresh store at version zero always validates.
type tableSpec struct {
	name    string
	version int64
	columns map[string]int64
}

var schemaSpecs = []tableSpec{
	{
		name:    constants.TableCustomers,
		version: 1,
		columns: map[string]int64{
			"id": 1, "name": 1, "phone": 1, "language": 1,
			"gender": 1, "age": 1, "location": 1, "created_at": 1,
		},
	},
	{
		name:    constants.TableUsers,
		version: 2,
		columns: map[string]int64{
			"id": 2, "email": 2, "name": 2, "phone": 2,
			"role": 2, "active": 2, "admin_area": 2, "created_at": 2,
		},
	},
	{
		name:    constants.TableProfiles,
		version: 2,
		columns: map[string]int64{
			"id": 2, "user_id": 2, "token": 2, "refresh_token": 2,
			"sync_prefs": 2, "updated_at": 2,
		},
	},
	{
		name:    constants.TableTickets,
		version: 3,
		columns: map[string]int64{
			"id": 3, "number": 3, "customer_id": 3, "first_message_id": 3,
			"last_message_id": 3, "status": 3, "unread_count": 3,
			"resolved_by_id": 3, "created_at": 3, "resolved_at": 3,
			"context_message_id": 6,
		},
	},
	{
		name:    constants.TableMessages,
		version: 4,
		columns: map[string]int64{
			"id": 4, "origin": 4, "wa_message_id": 4, "customer_id": 4,
			"sender_user_id": 4, "body": 4, "message_type": 4,
			"status": 4, "created_at": 4,
		},
	},
	{
		name:    constants.TableSyncLogs,
		version: 5,
		columns: map[string]int64{
			"id": 5, "kind": 5, "status": 5, "detail": 5,
			"started_at": 5, "finished_at": 5,
		},
	},
}

// Validate checks the stored schema against what the recorded migration
// version says should exist. It reports the first discrepancy found.
func (m *Manager) Validate(db *gorm.DB) error {
	migrator := db.Migrator()

	if !migrator.HasTable("goose_db_version") {
		// Nothing recorded yet; any tables present were not created by us,
		// but an empty store is the common case and Up handles it.
		return nil
	}

	version, err := m.currentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 {
		return nil
	}

	for _, spec := range schemaSpecs {
		if spec.version > version {
			continue
		}
		if !migrator.HasTable(spec.name) {
			return fmt.Errorf("table %s missing at schema version %d", spec.name, version)
		}
		for column, introduced := range spec.columns {
			if introduced > version {
				continue
			}
			if !migrator.HasColumn(spec.name, column) {
				return fmt.Errorf("column %s.%s missing at schema version %d", spec.name, column, version)
			}
		}
	}

	return nil
}

func (m *Manager) currentVersion(db *gorm.DB) (int64, error) {
	var version int64
	err := db.Raw("SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied = 1").
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	return version, nil
}
