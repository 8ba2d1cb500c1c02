package instances

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type QueueRepo interface {
	Create(dbc dbctx.Context, rows []*types.QueuedInstance) ([]*types.QueuedInstance, error)
	DeleteForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) (int64, error)
	ListForUser(dbc dbctx.Context, userID string) ([]*types.QueuedInstance, error)
}

type queueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return &queueRepo{
		db:  db,
		log: baseLog.With("repo", "QueueRepo"),
	}
}

func (r *queueRepo) Create(dbc dbctx.Context, rows []*types.QueuedInstance) ([]*types.QueuedInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.QueuedInstance{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *queueRepo) DeleteForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(instanceIDs) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("questionnaire_instance_id IN ?", instanceIDs).
		Delete(&types.QueuedInstance{})
	return res.RowsAffected, res.Error
}

func (r *queueRepo) ListForUser(dbc dbctx.Context, userID string) ([]*types.QueuedInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QueuedInstance
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("date_of_queue ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
