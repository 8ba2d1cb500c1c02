package instances

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type AnswerRepo interface {
	ListForOption(dbc dbctx.Context, instanceID uuid.UUID, answerOptionID int) ([]*types.Answer, error)
	ListForVersion(dbc dbctx.Context, instanceID uuid.UUID, versioning int) ([]*types.Answer, error)
	CopyVersion(dbc dbctx.Context, instanceID uuid.UUID, from, to int) (int, error)
}

type answerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	return &answerRepo{
		db:  db,
		log: baseLog.With("repo", "AnswerRepo"),
	}
}

// ListForOption returns every version of one answer option's answer,
// oldest version first.
func (r *answerRepo) ListForOption(dbc dbctx.Context, instanceID uuid.UUID, answerOptionID int) ([]*types.Answer, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Answer
	if instanceID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("questionnaire_instance_id = ? AND answer_option_id = ?", instanceID, answerOptionID).
		Order("versioning ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *answerRepo) ListForVersion(dbc dbctx.Context, instanceID uuid.UUID, versioning int) ([]*types.Answer, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Answer
	if instanceID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("questionnaire_instance_id = ? AND versioning = ?", instanceID, versioning).
		Order("question_id ASC, answer_option_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CopyVersion replaces the answers stored under version `to` with copies of
// version `from` and returns how many were copied.
func (r *answerRepo) CopyVersion(dbc dbctx.Context, instanceID uuid.UUID, from, to int) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if instanceID == uuid.Nil || from == to {
		return 0, nil
	}
	tx := transaction.WithContext(dbc.Ctx)
	if err := tx.
		Where("questionnaire_instance_id = ? AND versioning = ?", instanceID, to).
		Delete(&types.Answer{}).Error; err != nil {
		return 0, fmt.Errorf("delete version %d answers: %w", to, err)
	}
	var source []*types.Answer
	if err := tx.
		Where("questionnaire_instance_id = ? AND versioning = ?", instanceID, from).
		Find(&source).Error; err != nil {
		return 0, fmt.Errorf("load version %d answers: %w", from, err)
	}
	if len(source) == 0 {
		return 0, nil
	}
	copies := make([]*types.Answer, 0, len(source))
	for _, a := range source {
		c := *a
		c.Versioning = to
		copies = append(copies, &c)
	}
	if err := tx.Create(&copies).Error; err != nil {
		return 0, fmt.Errorf("insert version %d answers: %w", to, err)
	}
	return len(copies), nil
}
