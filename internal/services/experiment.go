package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/experiments-backend/internal/data/cache"
	"github.com/yungbote/experiments-backend/internal/data/repos"
	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/engine"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/apierr"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type VariantInput struct {
	Name              string  `json:"name"`
	TrafficAllocation float64 `json:"traffic_allocation"`
}

type CreateExperimentInput struct {
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Variants    []VariantInput `json:"variants"`
}

type ExperimentService interface {
	Create(ctx context.Context, in CreateExperimentInput) (*types.Experiment, error)
	Get(ctx context.Context, experimentID string) (*types.Experiment, error)
	List(ctx context.Context) ([]*types.Experiment, error)
	Delete(ctx context.Context, experimentID string) error
}

type experimentService struct {
	db          *gorm.DB
	log         *logger.Logger
	experiments repos.ExperimentRepo
	cache       cache.AssignmentCache
	metrics     *observability.Metrics
}

func NewExperimentService(db *gorm.DB, baseLog *logger.Logger, experiments repos.ExperimentRepo, assignmentCache cache.AssignmentCache, metrics *observability.Metrics) ExperimentService {
	if assignmentCache == nil {
		assignmentCache = cache.NewNoopAssignmentCache()
	}
	return &experimentService{
		db:          db,
		log:         baseLog.With("service", "ExperimentService"),
		experiments: experiments,
		cache:       assignmentCache,
		metrics:     metrics,
	}
}

func (s *experimentService) Create(ctx context.Context, in CreateExperimentInput) (*types.Experiment, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Validation("experiment name is required")
	}
	specs := make([]engine.VariantSpec, 0, len(in.Variants))
	for _, v := range in.Variants {
		specs = append(specs, engine.VariantSpec{Name: v.Name, TrafficAllocation: v.TrafficAllocation})
	}
	if err := engine.ValidateAllocations(specs); err != nil {
		return nil, apierr.Validation("%s", err.Error())
	}

	exp := &types.Experiment{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		ClientID:    clientID,
		Status:      types.ExperimentStatusActive,
	}
	// insertion order fixes variant ids, and with them the bucketing walk order
	for _, v := range in.Variants {
		exp.Variants = append(exp.Variants, &types.Variant{
			Name:              strings.TrimSpace(v.Name),
			TrafficAllocation: v.TrafficAllocation,
		})
	}
	if _, err := s.experiments.Create(dbctx.Context{Ctx: ctx}, exp); err != nil {
		s.log.Error("Failed to create experiment", "client_id", clientID, "error", err)
		return nil, fmt.Errorf("create experiment: %w", err)
	}
	s.metrics.IncExperiment("created")
	s.log.Info("Experiment created", "experiment_id", exp.ID.String(), "client_id", clientID, "variants", len(exp.Variants))
	return exp, nil
}

func (s *experimentService) Get(ctx context.Context, experimentID string) (*types.Experiment, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseExperimentID(experimentID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id, clientID)
}

func (s *experimentService) load(ctx context.Context, id uuid.UUID, clientID int64) (*types.Experiment, error) {
	exp, err := s.experiments.GetByIDForClient(dbctx.Context{Ctx: ctx}, id, clientID)
	if err != nil {
		return nil, fmt.Errorf("load experiment: %w", err)
	}
	if exp == nil {
		return nil, apierr.NotFound("Experiment not found")
	}
	return exp, nil
}

func (s *experimentService) List(ctx context.Context) ([]*types.Experiment, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.experiments.ListByClient(dbctx.Context{Ctx: ctx}, clientID)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	if rows == nil {
		rows = []*types.Experiment{}
	}
	return rows, nil
}

func (s *experimentService) Delete(ctx context.Context, experimentID string) error {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return err
	}
	id, err := parseExperimentID(experimentID)
	if err != nil {
		return err
	}
	ok, err := s.experiments.DeleteByIDForClient(dbctx.Context{Ctx: ctx}, id, clientID)
	if err != nil {
		return fmt.Errorf("delete experiment: %w", err)
	}
	if !ok {
		return apierr.NotFound("Experiment not found")
	}
	if err := s.cache.DeleteExperiment(ctx, id); err != nil {
		s.log.Warn("Failed to evict cached assignments", "experiment_id", id.String(), "error", err)
	}
	s.metrics.IncExperiment("deleted")
	s.log.Info("Experiment deleted", "experiment_id", id.String(), "client_id", clientID)
	return nil
}
