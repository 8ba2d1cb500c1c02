package instances

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

// ReminderRepo manages the questionnaire reminder rows of the notification
// schedule. Other notification types are never touched.
type ReminderRepo interface {
	DeleteForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) (int64, error)
	ListForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) ([]*types.NotificationSchedule, error)
}

type reminderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	return &reminderRepo{
		db:  db,
		log: baseLog.With("repo", "ReminderRepo"),
	}
}

func referenceIDs(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func (r *reminderRepo) DeleteForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(instanceIDs) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("notification_type = ? AND reference_id IN ?", types.NotificationTypeReminder, referenceIDs(instanceIDs)).
		Delete(&types.NotificationSchedule{})
	return res.RowsAffected, res.Error
}

func (r *reminderRepo) ListForInstances(dbc dbctx.Context, instanceIDs []uuid.UUID) ([]*types.NotificationSchedule, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.NotificationSchedule
	if len(instanceIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("notification_type = ? AND reference_id IN ?", types.NotificationTypeReminder, referenceIDs(instanceIDs)).
		Order("sending_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
