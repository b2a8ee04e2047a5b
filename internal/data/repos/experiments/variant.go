package experiments

import (
	"gorm.io/gorm"

	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
)

type VariantRepo interface {
	Create(dbc dbctx.Context, variants []*types.Variant) ([]*types.Variant, error)
	GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.Variant, error)
}

type variantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	return &variantRepo{db: db, log: baseLog.With("repo", "VariantRepo")}
}

// Create inserts variants one at a time in slice order so their ids ascend
// in that order.
func (r *variantRepo) Create(dbc dbctx.Context, variants []*types.Variant) ([]*types.Variant, error) {
	if len(variants) == 0 {
		return []*types.Variant{}, nil
	}
	conn := dbc.Conn(r.db)
	for _, v := range variants {
		if err := conn.Create(v).Error; err != nil {
			return nil, err
		}
	}
	return variants, nil
}

func (r *variantRepo) GetByIDs(dbc dbctx.Context, ids []uint) ([]*types.Variant, error) {
	var results []*types.Variant
	if len(ids) == 0 {
		return results, nil
	}
	if err := dbc.Conn(r.db).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
