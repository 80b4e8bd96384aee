// internal/db/migrations.go
package db

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateRecipientColumn — one-off: ранние деплои хранили в devices.email_id
// одиночный адрес простой строкой; теперь колонка держит JSON-массив.
// Оборачиваем legacy-значения в ["..."], JSON-массивы не трогаем.
func MigrateRecipientColumn(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if !db.Migrator().HasTable("devices") || !db.Migrator().HasColumn("devices", "email_id") {
		return nil
	}

	dialect := db.Dialector.Name()
	var err error
	switch dialect {
	case "mysql":
		err = db.Exec("UPDATE `devices` SET `email_id` = CONCAT('[\"', `email_id`, '\"]') " +
			"WHERE `email_id` IS NOT NULL AND `email_id` != '' AND `email_id` NOT LIKE '[%'").Error
	case "postgres":
		err = db.Exec(`UPDATE "devices" SET "email_id" = '["' || "email_id" || '"]' ` +
			`WHERE "email_id" IS NOT NULL AND "email_id" != '' AND "email_id" NOT LIKE '[%'`).Error
	case "sqlite":
		err = db.Exec(`UPDATE devices SET email_id = '["' || email_id || '"]' ` +
			`WHERE email_id IS NOT NULL AND email_id != '' AND email_id NOT LIKE '[%'`).Error
	default:
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}
	if err != nil {
		return fmt.Errorf("migrate devices.email_id: %w", err)
	}
	return nil
}
