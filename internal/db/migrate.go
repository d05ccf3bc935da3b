package db

import (
	"fmt"

	"github.com/keyrelay/keyrelay/internal/models"
	"gorm.io/gorm"
)

// Migrate applies the key store schema. Legacy column fixes run before
// AutoMigrate so older databases converge on the current shape; every step
// is idempotent and safe to run at each startup.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errLegacy := migrateLegacyColumns(conn); errLegacy != nil {
		return errLegacy
	}

	if errAutoMigrate := conn.AutoMigrate(&models.KeyMapping{}); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migrateLegacyColumns renames credential columns from earlier deployments
// (provider_api_key, mail72h_api_key) to api_key and drops the unused note
// column.
func migrateLegacyColumns(conn *gorm.DB) error {
	migrator := conn.Migrator()
	if !migrator.HasTable(&models.KeyMapping{}) {
		return nil
	}

	for _, legacy := range []string{"provider_api_key", "mail72h_api_key"} {
		if !migrator.HasColumn(&models.KeyMapping{}, legacy) {
			continue
		}
		if migrator.HasColumn(&models.KeyMapping{}, "api_key") {
			// Both present: the legacy column is dead weight.
			if errDrop := migrator.DropColumn(&models.KeyMapping{}, legacy); errDrop != nil {
				return fmt.Errorf("db: drop legacy column %s: %w", legacy, errDrop)
			}
			continue
		}
		if errRename := migrator.RenameColumn(&models.KeyMapping{}, legacy, "api_key"); errRename != nil {
			return fmt.Errorf("db: rename legacy column %s: %w", legacy, errRename)
		}
	}

	if migrator.HasColumn(&models.KeyMapping{}, "note") {
		if errDrop := migrator.DropColumn(&models.KeyMapping{}, "note"); errDrop != nil {
			return fmt.Errorf("db: drop note column: %w", errDrop)
		}
	}
	return nil
}
