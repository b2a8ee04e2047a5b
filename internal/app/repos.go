package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/data/repos"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type Repos struct {
	Experiment repos.ExperimentRepo
	Variant    repos.VariantRepo
	Assignment repos.AssignmentRepo
	Event      repos.EventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Experiment: repos.NewExperimentRepo(db, log),
		Variant:    repos.NewVariantRepo(db, log),
		Assignment: repos.NewAssignmentRepo(db, log),
		Event:      repos.NewEventRepo(db, log),
	}
}
