package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

type Services struct {
	Experiment services.ExperimentService
	Assignment services.AssignmentService
	Results    services.ResultsService
	Event      services.EventService
}

func wireServices(db *gorm.DB, log *logger.Logger, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	return Services{
		Experiment: services.NewExperimentService(db, log, repos.Experiment, clients.AssignmentCache, metrics),
		Assignment: services.NewAssignmentService(db, log, repos.Experiment, repos.Variant, repos.Assignment, clients.AssignmentCache, metrics),
		Results:    services.NewResultsService(db, log, repos.Experiment, repos.Assignment, repos.Event, metrics),
		Event:      services.NewEventService(db, log, repos.Event, metrics),
	}
}
