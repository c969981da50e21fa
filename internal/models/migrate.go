package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate создает таблицы производства
func AutoMigrate(db *gorm.DB) error {
	// gen_random_uuid() для audit_log (встроен начиная с PostgreSQL 13, иначе pgcrypto)
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(
		&ProductionOrder{},
		&BinAllocation{},
		&CleaningReminder{},
		&AuditLogEntry{},
		&ProductionOutput{},
		&PackagingRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate production tables: %w", err)
	}

	return nil
}
