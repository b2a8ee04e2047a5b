package experiments

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	GetByExperimentAndUser(dbc dbctx.Context, experimentID uuid.UUID, userID string) (*types.UserAssignment, error)
	// CreateIfAbsent inserts assignment unless a row for the same
	// (experiment_id, user_id) exists, and returns whichever row is stored.
	// created reports whether this call inserted it.
	CreateIfAbsent(dbc dbctx.Context, assignment *types.UserAssignment) (stored *types.UserAssignment, created bool, err error)
	ListByExperiment(dbc dbctx.Context, experimentID uuid.UUID) ([]*types.UserAssignment, error)
	CountByExperimentAndUser(dbc dbctx.Context, experimentID uuid.UUID, userID string) (int64, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) GetByExperimentAndUser(dbc dbctx.Context, experimentID uuid.UUID, userID string) (*types.UserAssignment, error) {
	var a types.UserAssignment
	err := dbc.Conn(r.db).
		Where("experiment_id = ? AND user_id = ?", experimentID, userID).
		Order("assigned_at ASC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) CreateIfAbsent(dbc dbctx.Context, assignment *types.UserAssignment) (*types.UserAssignment, bool, error) {
	if assignment == nil {
		return nil, false, errors.New("assignment required")
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "experiment_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(assignment)
	if res.Error != nil && !isUniqueViolation(res.Error) {
		return nil, false, res.Error
	}
	if res.Error == nil && res.RowsAffected == 1 {
		return assignment, true, nil
	}

	// lost the race: another writer stored the row first
	existing, err := r.GetByExperimentAndUser(dbc, assignment.ExperimentID, assignment.UserID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("assignment conflict for experiment %s but no stored row", assignment.ExperimentID)
	}
	r.log.Debug("Assignment already stored", "experiment_id", assignment.ExperimentID.String(), "user_id", assignment.UserID)
	return existing, false, nil
}

func (r *assignmentRepo) ListByExperiment(dbc dbctx.Context, experimentID uuid.UUID) ([]*types.UserAssignment, error) {
	var results []*types.UserAssignment
	if err := dbc.Conn(r.db).
		Where("experiment_id = ?", experimentID).
		Order("assigned_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assignmentRepo) CountByExperimentAndUser(dbc dbctx.Context, experimentID uuid.UUID, userID string) (int64, error) {
	var n int64
	if err := dbc.Conn(r.db).
		Model(&types.UserAssignment{}).
		Where("experiment_id = ? AND user_id = ?", experimentID, userID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
