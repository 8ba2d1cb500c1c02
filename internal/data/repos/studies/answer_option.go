package studies

import (
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type AnswerOptionRepo interface {
	GetByIDs(dbc dbctx.Context, ids []int) (map[int]*types.AnswerOption, error)
}

type answerOptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerOptionRepo(db *gorm.DB, baseLog *logger.Logger) AnswerOptionRepo {
	return &answerOptionRepo{
		db:  db,
		log: baseLog.With("repo", "AnswerOptionRepo"),
	}
}

func (r *answerOptionRepo) GetByIDs(dbc dbctx.Context, ids []int) (map[int]*types.AnswerOption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[int]*types.AnswerOption{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*types.AnswerOption
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
