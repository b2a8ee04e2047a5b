package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
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

const (
	AssignmentSourceNew      = "new"
	AssignmentSourceExisting = "existing"
	AssignmentSourceCache    = "cache"
)

// sharedAssignTimeout bounds a coalesced lookup once it no longer follows the
// caller that started it.
const sharedAssignTimeout = 10 * time.Second

// Assignment is a stored UserAssignment joined with its variant name.
type Assignment struct {
	ID           uuid.UUID `json:"id"`
	ExperimentID uuid.UUID `json:"experiment_id"`
	VariantID    uint      `json:"variant_id"`
	VariantName  string    `json:"variant_name"`
	UserID       string    `json:"user_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

type AssignmentService interface {
	// Assign returns the user's variant for the experiment, creating the
	// assignment on first call. Later calls return the stored row unchanged.
	Assign(ctx context.Context, experimentID, userID string) (*Assignment, error)
}

type assignmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	experiments repos.ExperimentRepo
	variants    repos.VariantRepo
	assignments repos.AssignmentRepo
	cache       cache.AssignmentCache
	metrics     *observability.Metrics
	inflight    singleflight.Group
	now         func() time.Time
}

func NewAssignmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	experiments repos.ExperimentRepo,
	variants repos.VariantRepo,
	assignments repos.AssignmentRepo,
	assignmentCache cache.AssignmentCache,
	metrics *observability.Metrics,
) AssignmentService {
	if assignmentCache == nil {
		assignmentCache = cache.NewNoopAssignmentCache()
	}
	return &assignmentService{
		db:          db,
		log:         baseLog.With("service", "AssignmentService"),
		experiments: experiments,
		variants:    variants,
		assignments: assignments,
		cache:       assignmentCache,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

type assignOutcome struct {
	row    *types.UserAssignment
	source string
}

func (s *assignmentService) Assign(ctx context.Context, experimentID, userID string) (*Assignment, error) {
	clientID, err := clientIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apierr.Validation("user_id is required")
	}
	expID, err := parseExperimentID(experimentID)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "assignment.assign", attribute.String("experiment.id", expID.String()))
	defer span.End()
	start := time.Now()

	exp, err := s.experiments.GetByIDForClient(dbctx.Context{Ctx: ctx}, expID, clientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load experiment")
		return nil, fmt.Errorf("load experiment: %w", err)
	}
	if exp == nil {
		return nil, apierr.NotFound("Experiment not found")
	}

	out, err := s.resolve(ctx, exp, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assign")
		return nil, err
	}
	res, err := s.present(ctx, exp, out.row)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("assignment.source", out.source),
		attribute.Int64("assignment.variant_id", int64(res.VariantID)),
	)
	s.metrics.ObserveAssignment(exp.ID.String(), res.VariantName, out.source, time.Since(start))
	return res, nil
}

func (s *assignmentService) resolve(ctx context.Context, exp *types.Experiment, userID string) (assignOutcome, error) {
	cached, err := s.cache.Get(ctx, exp.ID, userID)
	if err != nil {
		s.log.Warn("Assignment cache read failed", "experiment_id", exp.ID.String(), "error", err)
	}
	if cached != nil {
		s.metrics.IncAssignmentCache(true)
		return assignOutcome{row: cached, source: AssignmentSourceCache}, nil
	}
	s.metrics.IncAssignmentCache(false)

	// Concurrent first requests for one (experiment, user) share a single
	// insert. The shared call is detached from any one caller's cancellation;
	// each caller stops waiting on its own ctx.
	ch := s.inflight.DoChan(exp.ID.String()+":"+userID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedAssignTimeout)
		defer cancel()
		return s.fetchOrCreate(flightCtx, exp, userID)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return assignOutcome{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return assignOutcome{}, res.Err
	}
	out := res.Val.(assignOutcome)
	if err := s.cache.Set(ctx, out.row); err != nil {
		s.log.Warn("Assignment cache write failed", "experiment_id", exp.ID.String(), "error", err)
	}
	return out, nil
}

func (s *assignmentService) fetchOrCreate(ctx context.Context, exp *types.Experiment, userID string) (assignOutcome, error) {
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.assignments.GetByExperimentAndUser(dbc, exp.ID, userID)
	if err != nil {
		return assignOutcome{}, fmt.Errorf("load assignment: %w", err)
	}
	if existing != nil {
		return assignOutcome{row: existing, source: AssignmentSourceExisting}, nil
	}

	variant, bucket, err := engine.Choose(exp, userID)
	if errors.Is(err, engine.ErrNoVariants) {
		s.log.Error("Experiment has no variants", "experiment_id", exp.ID.String())
		return assignOutcome{}, apierr.Internal("experiment %s has no variants", exp.ID)
	}
	if err != nil {
		return assignOutcome{}, err
	}

	row := &types.UserAssignment{
		ID:           uuid.New(),
		ExperimentID: exp.ID,
		VariantID:    variant.ID,
		UserID:       userID,
		AssignedAt:   s.now(),
	}
	stored, created, err := s.assignments.CreateIfAbsent(dbc, row)
	if err != nil {
		s.log.Error("Failed to store assignment", "experiment_id", exp.ID.String(), "user_id", userID, "error", err)
		return assignOutcome{}, fmt.Errorf("store assignment: %w", err)
	}
	if !created {
		return assignOutcome{row: stored, source: AssignmentSourceExisting}, nil
	}
	s.log.Debug("User assigned",
		"experiment_id", exp.ID.String(),
		"user_id", userID,
		"bucket", bucket,
		"variant_id", variant.ID,
	)
	return assignOutcome{row: stored, source: AssignmentSourceNew}, nil
}

func (s *assignmentService) present(ctx context.Context, exp *types.Experiment, row *types.UserAssignment) (*Assignment, error) {
	out := &Assignment{
		ID:           row.ID,
		ExperimentID: row.ExperimentID,
		VariantID:    row.VariantID,
		UserID:       row.UserID,
		AssignedAt:   row.AssignedAt.UTC(),
	}
	for _, v := range exp.Variants {
		if v != nil && v.ID == row.VariantID {
			out.VariantName = v.Name
			return out, nil
		}
	}
	found, err := s.variants.GetByIDs(dbctx.Context{Ctx: ctx}, []uint{row.VariantID})
	if err != nil {
		return nil, fmt.Errorf("load variant: %w", err)
	}
	if len(found) == 0 {
		return nil, apierr.Internal("assignment %s references missing variant %d", row.ID, row.VariantID)
	}
	out.VariantName = found[0].Name
	return out, nil
}
