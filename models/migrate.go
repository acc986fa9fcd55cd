package models

import (
	"fmt"

	"gorm.io/gorm"
)

// partialIndexes hold invariants AutoMigrate cannot express. The syntax is shared by PostgreSQL and SQLite.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_one_active ON connections (specifier_id, factory_id) WHERE status IN ('pending', 'approved')`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_commission_one_pending ON commission_agreements (connection_id) WHERE status = 'pendente'`,
}

// Migrate creates or updates every table and index
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Connection{},
		&CommissionAgreement{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderMessage{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
