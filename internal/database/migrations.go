package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationDedupeNotificationIdentity = "2026-08-12_dedupe_notification_identity"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationDedupeNotificationIdentity, apply: dedupeNotificationIdentity},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// dedupeNotificationIdentity collapses notification rows that predate the
// unique (note_id, recipient_id) index. The earliest row survives; it is
// marked read when any of its duplicates was read, so the monotonic read
// transition is never undone by the cleanup.
func dedupeNotificationIdentity(db *gorm.DB) error {
	markRead := `
		UPDATE notifications SET is_read = 1
		WHERE EXISTS (
			SELECT 1 FROM notifications dup
			WHERE dup.note_id = notifications.note_id
			  AND dup.recipient_id = notifications.recipient_id
			  AND dup.is_read = 1
		)`
	if err := db.Exec(markRead).Error; err != nil {
		return err
	}
	dropDuplicates := `
		DELETE FROM notifications
		WHERE notification_id NOT IN (
			SELECT MIN(notification_id) FROM notifications
			GROUP BY note_id, recipient_id
		)`
	return db.Exec(dropDuplicates).Error
}
