package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/data/repos"
	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/engine"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

// ResultsFilter holds the raw query parameters of a results request.
type ResultsFilter struct {
	EventType string
	StartDate string
	EndDate   string
}

type ResultsService interface {
	Results(ctx context.Context, experimentID string, filter ResultsFilter) (*types.ExperimentResults, error)
}

type resultsService struct {
	db          *gorm.DB
	log         *logger.Logger
	experiments repos.ExperimentRepo
	assignments repos.AssignmentRepo
	events      repos.EventRepo
	metrics     *observability.Metrics
}

func NewResultsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	experiments repos.ExperimentRepo,
	assignments repos.AssignmentRepo,
	events repos.EventRepo,
	metrics *observability.Metrics,
) ResultsService {
	return &resultsService{
		db:          db,
		log:         baseLog.With("service", "ResultsService"),
		experiments: experiments,
		assignments: assignments,
		events:      events,
		metrics:     metrics,
	}
}

func (s *resultsService) parseFilter(f ResultsFilter) (engine.EventFilter, error) {
	since, err := parseOptionalTimestamp(f.StartDate)
	if err != nil {
		return engine.EventFilter{}, apierr.Validation("start_date: %s", err.Error())
	}
	until, err := parseOptionalTimestamp(f.EndDate)
	if err != nil {
		return engine.EventFilter{}, apierr.Validation("end_date: %s", err.Error())
	}
	if since != nil && until != nil && until.Before(*since) {
		return engine.EventFilter{}, apierr.Validation("end_date must not be before start_date")
	}
	return engine.EventFilter{EventType: strings.TrimSpace(f.EventType), Since: since, Until: until}, nil
}

// Results aggregates over a best-effort snapshot: assignments and events
// written while it runs may or may not be included.
func (s *resultsService) Results(ctx context.Context, experimentID string, filter ResultsFilter) (*types.ExperimentResults, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	expID, err := parseExperimentID(experimentID)
	if err != nil {
		return nil, err
	}
	ef, err := s.parseFilter(filter)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "results.aggregate", attribute.String("experiment.id", expID.String()))
	defer span.End()
	start := time.Now()
	status := "error"
	defer func() { s.metrics.ObserveResults(status, time.Since(start)) }()

	dbc := dbctx.Context{Ctx: ctx}
	exp, err := s.experiments.GetByIDForClient(dbc, expID, clientID)
	if err != nil {
		return nil, fmt.Errorf("load experiment: %w", err)
	}
	if exp == nil {
		status = "not_found"
		return nil, apierr.NotFound("Experiment not found")
	}

	assignments, err := s.assignments.ListByExperiment(dbc, exp.ID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	seen := make(map[string]struct{}, len(assignments))
	userIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		userIDs = append(userIDs, a.UserID)
	}

	var events []*types.Event
	if len(userIDs) > 0 {
		events, err = s.events.ListForUsers(dbc, repos.EventQuery{
			ClientID:  exp.ClientID,
			UserIDs:   userIDs,
			EventType: ef.EventType,
			Since:     ef.Since,
			Until:     ef.Until,
		})
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
	}

	res := engine.Aggregate(exp, assignments, events, ef)
	span.SetAttributes(
		attribute.Int("results.total_users", res.TotalUsers),
		attribute.Int("results.total_events", res.Summary.TotalEvents),
	)
	status = "ok"
	return res, nil
}
