package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/data/repos"
	"github.com/yungbote/experiments-backend/internal/data/repos/testutil"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/ctxutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type testEnv struct {
	ctx         context.Context
	db          *gorm.DB
	log         *logger.Logger
	clientID    int64
	metrics     *observability.Metrics
	experiments repos.ExperimentRepo
	variants    repos.VariantRepo
	assignments repos.AssignmentRepo
	events      repos.EventRepo
}

// newTestEnv wires repos onto a rolled-back transaction.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	return newTestEnvOn(t, tx)
}

func newTestEnvOn(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	clientID := testutil.ClientID()
	return &testEnv{
		ctx:         asClient(context.Background(), clientID),
		db:          db,
		log:         log,
		clientID:    clientID,
		metrics:     observability.New(),
		experiments: repos.NewExperimentRepo(db, log),
		variants:    repos.NewVariantRepo(db, log),
		assignments: repos.NewAssignmentRepo(db, log),
		events:      repos.NewEventRepo(db, log),
	}
}

func asClient(ctx context.Context, clientID int64) context.Context {
	return ctxutil.WithClientData(ctx, &ctxutil.ClientData{ClientID: clientID})
}

func (e *testEnv) experimentService() ExperimentService {
	return NewExperimentService(e.db, e.log, e.experiments, nil, e.metrics)
}

func (e *testEnv) assignmentService() AssignmentService {
	return NewAssignmentService(e.db, e.log, e.experiments, e.variants, e.assignments, nil, e.metrics)
}

func (e *testEnv) resultsService() ResultsService {
	return NewResultsService(e.db, e.log, e.experiments, e.assignments, e.events, e.metrics)
}

func (e *testEnv) eventService() EventService {
	return NewEventService(e.db, e.log, e.events, e.metrics)
}
