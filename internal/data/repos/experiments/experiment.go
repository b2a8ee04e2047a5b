package experiments

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type ExperimentRepo interface {
	Create(dbc dbctx.Context, experiment *types.Experiment) (*types.Experiment, error)
	GetByIDForClient(dbc dbctx.Context, id uuid.UUID, clientID int64) (*types.Experiment, error)
	ListByClient(dbc dbctx.Context, clientID int64) ([]*types.Experiment, error)
	DeleteByIDForClient(dbc dbctx.Context, id uuid.UUID, clientID int64) (bool, error)
}

type experimentRepo struct {
	db       *gorm.DB
	log      *logger.Logger
	variants VariantRepo
}

func NewExperimentRepo(db *gorm.DB, baseLog *logger.Logger) ExperimentRepo {
	return &experimentRepo{
		db:       db,
		log:      baseLog.With("repo", "ExperimentRepo"),
		variants: NewVariantRepo(db, baseLog),
	}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Order("variants.id ASC")
}

// Create inserts the experiment and its variants in one transaction.
func (r *experimentRepo) Create(dbc dbctx.Context, experiment *types.Experiment) (*types.Experiment, error) {
	if experiment == nil {
		return nil, errors.New("experiment required")
	}
	err := dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		variants := experiment.Variants
		experiment.Variants = nil
		if err := tx.Omit("Variants", "Assignments").Create(experiment).Error; err != nil {
			return err
		}
		for _, v := range variants {
			v.ExperimentID = experiment.ID
		}
		created, err := r.variants.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, variants)
		if err != nil {
			return err
		}
		experiment.Variants = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return experiment, nil
}

func (r *experimentRepo) GetByIDForClient(dbc dbctx.Context, id uuid.UUID, clientID int64) (*types.Experiment, error) {
	var exp types.Experiment
	err := dbc.Conn(r.db).
		Preload("Variants", preloadVariants).
		Where("id = ? AND client_id = ?", id, clientID).
		First(&exp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *experimentRepo) ListByClient(dbc dbctx.Context, clientID int64) ([]*types.Experiment, error) {
	var results []*types.Experiment
	if err := dbc.Conn(r.db).
		Preload("Variants", preloadVariants).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByIDForClient removes the experiment with its variants and assignments.
// Children are deleted explicitly so the result does not depend on the
// database enforcing ON DELETE CASCADE.
func (r *experimentRepo) DeleteByIDForClient(dbc dbctx.Context, id uuid.UUID, clientID int64) (bool, error) {
	deleted := false
	err := dbc.Conn(r.db).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&types.Experiment{}).
			Where("id = ? AND client_id = ?", id, clientID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if err := tx.Where("experiment_id = ?", id).Delete(&types.UserAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("experiment_id = ?", id).Delete(&types.Variant{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND client_id = ?", id, clientID).Delete(&types.Experiment{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		r.log.Info("Experiment deleted", "experiment_id", id.String(), "client_id", clientID)
	}
	return deleted, nil
}
