package studies

import (
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type ConditionRepo interface {
	GetForQuestionnaire(dbc dbctx.Context, questionnaireID, version int) (*types.Condition, error)
	ListForQuestionnaires(dbc dbctx.Context, questionnaireIDs []int) ([]*types.Condition, error)
	ListTargeting(dbc dbctx.Context, targetID, targetVersion int) ([]*types.Condition, error)
}

type conditionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConditionRepo(db *gorm.DB, baseLog *logger.Logger) ConditionRepo {
	return &conditionRepo{
		db:  db,
		log: baseLog.With("repo", "ConditionRepo"),
	}
}

// GetForQuestionnaire returns the condition owned by one questionnaire
// version, or nil.
func (r *conditionRepo) GetForQuestionnaire(dbc dbctx.Context, questionnaireID, version int) (*types.Condition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Condition
	if err := transaction.WithContext(dbc.Ctx).
		Where("condition_questionnaire_id = ? AND condition_questionnaire_version = ?", questionnaireID, version).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListForQuestionnaires returns the conditions owned by any version of the
// given questionnaires.
func (r *conditionRepo) ListForQuestionnaires(dbc dbctx.Context, questionnaireIDs []int) ([]*types.Condition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Condition
	if len(questionnaireIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("condition_questionnaire_id IN ?", questionnaireIDs).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListTargeting returns every condition that reads answers of the given
// questionnaire version.
func (r *conditionRepo) ListTargeting(dbc dbctx.Context, targetID, targetVersion int) ([]*types.Condition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Condition
	if err := transaction.WithContext(dbc.Ctx).
		Where("condition_target_questionnaire = ? AND condition_target_questionnaire_version = ?", targetID, targetVersion).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
