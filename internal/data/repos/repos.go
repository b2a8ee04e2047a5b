package repos

import (
	"github.com/yungbote/experiments-backend/internal/data/repos/experiments"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ExperimentRepo = experiments.ExperimentRepo
type VariantRepo = experiments.VariantRepo
type AssignmentRepo = experiments.AssignmentRepo
type EventRepo = experiments.EventRepo
type EventQuery = experiments.EventQuery

func NewExperimentRepo(db *gorm.DB, baseLog *logger.Logger) ExperimentRepo {
	return experiments.NewExperimentRepo(db, baseLog)
}
func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	return experiments.NewVariantRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return experiments.NewAssignmentRepo(db, baseLog)
}
func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return experiments.NewEventRepo(db, baseLog)
}
