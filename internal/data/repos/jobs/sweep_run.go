package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type SweepRunRepo interface {
	Create(dbc dbctx.Context, run *types.SweepRun) (*types.SweepRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SweepRun, error)
	GetLatest(dbc dbctx.Context) (*types.SweepRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FailStale(dbc dbctx.Context, olderThan time.Time) (int64, error)
}

type sweepRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSweepRunRepo(db *gorm.DB, baseLog *logger.Logger) SweepRunRepo {
	return &sweepRunRepo{
		db:  db,
		log: baseLog.With("repo", "SweepRunRepo"),
	}
}

func (r *sweepRunRepo) Create(dbc dbctx.Context, run *types.SweepRun) (*types.SweepRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if run.Status == "" {
		run.Status = types.SweepStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *sweepRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SweepRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.SweepRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *sweepRunRepo) GetLatest(dbc dbctx.Context) (*types.SweepRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.SweepRun
	if err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(1).
		Find(&run).Error; err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *sweepRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SweepRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FailStale marks runs that never finished, for example because the process
// died mid-sweep, as failed.
func (r *sweepRunRepo) FailStale(dbc dbctx.Context, olderThan time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.SweepRun{}).
		Where("status = ? AND started_at < ?", types.SweepStatusRunning, olderThan).
		Updates(map[string]interface{}{
			"status":      types.SweepStatusFailed,
			"error":       "abandoned",
			"finished_at": now,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}
