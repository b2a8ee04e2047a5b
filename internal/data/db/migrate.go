package db

import (
	types "github.com/yungbote/experiments-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Experiment{},
		&types.Variant{},
		&types.UserAssignment{},
		&types.Event{},
	)
}
