package instances

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

const insertBatchSize = 500

// ReleasedStatuses are the statuses whose answers are final enough to be read
// by conditions.
var ReleasedStatuses = []string{types.InstanceReleasedOnce, types.InstanceReleasedTwice, types.InstanceReleased}

// Filter selects instances. Zero fields do not constrain.
type Filter struct {
	QuestionnaireID int
	// Version matches exactly; BelowVersion matches strictly older versions.
	Version      int
	BelowVersion int
	UserID       string
	StudyID      string
	Statuses     []string
	// Unanswered keeps only instances without any stored answer.
	Unanswered bool
}

// SweepCandidate is an instance joined with the fields the lifecycle sweep
// needs from its questionnaire and participant.
type SweepCandidate struct {
	Instance           types.QuestionnaireInstance `gorm:"embedded"`
	CycleUnit          string                      `gorm:"column:cycle_unit"`
	QuestionnaireType  string                      `gorm:"column:questionnaire_type"`
	ExpiresAfterDays   int                         `gorm:"column:expires_after_days"`
	FinalisesAfterDays int                         `gorm:"column:finalises_after_days"`
	ParticipantIDs     *string                     `gorm:"column:participant_ids"`
}

type InstanceRepo interface {
	CreateMissing(dbc dbctx.Context, drafts []*types.QuestionnaireInstance) ([]*types.QuestionnaireInstance, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuestionnaireInstance, error)
	List(dbc dbctx.Context, f Filter) ([]*types.QuestionnaireInstance, error)
	ListIDs(dbc dbctx.Context, f Filter) ([]uuid.UUID, error)
	LatestReleased(dbc dbctx.Context, userID string, questionnaireID, version int) (*types.QuestionnaireInstance, error)
	ListSweepCandidates(dbc dbctx.Context, statuses []string) ([]*SweepCandidate, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	UpdateStatus(dbc dbctx.Context, ids []uuid.UUID, status string) (int64, error)
	MarkReleasedTwice(dbc dbctx.Context, id uuid.UUID, releasedAt time.Time) error
}

type instanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	return &instanceRepo{
		db:  db,
		log: baseLog.With("repo", "InstanceRepo"),
	}
}

// CreateMissing inserts the drafts whose composite identity is not stored
// yet and returns exactly those.
func (r *instanceRepo) CreateMissing(dbc dbctx.Context, drafts []*types.QuestionnaireInstance) ([]*types.QuestionnaireInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(drafts) == 0 {
		return []*types.QuestionnaireInstance{}, nil
	}

	qids := map[int]struct{}{}
	users := map[string]struct{}{}
	for _, d := range drafts {
		if d == nil {
			continue
		}
		qids[d.QuestionnaireID] = struct{}{}
		users[d.UserID] = struct{}{}
	}
	qidList := make([]int, 0, len(qids))
	for id := range qids {
		qidList = append(qidList, id)
	}
	userList := make([]string, 0, len(users))
	for u := range users {
		userList = append(userList, u)
	}

	var existing []types.QuestionnaireInstance
	if err := transaction.WithContext(dbc.Ctx).
		Select("questionnaire_id, questionnaire_version, user_id, cycle").
		Where("questionnaire_id IN ? AND user_id IN ?", qidList, userList).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load existing instances: %w", err)
	}
	seen := make(map[types.InstanceKey]struct{}, len(existing)+len(drafts))
	for i := range existing {
		seen[existing[i].Key()] = struct{}{}
	}

	out := make([]*types.QuestionnaireInstance, 0, len(drafts))
	for _, d := range drafts {
		if d == nil {
			continue
		}
		if _, dup := seen[d.Key()]; dup {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(out, insertBatchSize).Error; err != nil {
		return nil, fmt.Errorf("insert instances: %w", err)
	}
	return out, nil
}

func (r *instanceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QuestionnaireInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.QuestionnaireInstance
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *instanceRepo) scoped(tx *gorm.DB, f Filter) *gorm.DB {
	q := tx.Model(&types.QuestionnaireInstance{})
	if f.QuestionnaireID != 0 {
		q = q.Where("questionnaire_id = ?", f.QuestionnaireID)
	}
	if f.Version != 0 {
		q = q.Where("questionnaire_version = ?", f.Version)
	}
	if f.BelowVersion != 0 {
		q = q.Where("questionnaire_version < ?", f.BelowVersion)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.StudyID != "" {
		q = q.Where("study_id = ?", f.StudyID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Unanswered {
		q = q.Where("NOT EXISTS (SELECT 1 FROM answers WHERE answers.questionnaire_instance_id = questionnaire_instances.id)")
	}
	return q
}

func (r *instanceRepo) List(dbc dbctx.Context, f Filter) ([]*types.QuestionnaireInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.QuestionnaireInstance
	if err := r.scoped(transaction.WithContext(dbc.Ctx), f).
		Order("user_id ASC, questionnaire_id ASC, questionnaire_version ASC, cycle ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *instanceRepo) ListIDs(dbc dbctx.Context, f Filter) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []uuid.UUID{}
	if err := r.scoped(transaction.WithContext(dbc.Ctx), f).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LatestReleased returns the participant's highest-cycle released instance
// of one questionnaire version, or nil.
func (r *instanceRepo) LatestReleased(dbc dbctx.Context, userID string, questionnaireID, version int) (*types.QuestionnaireInstance, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.QuestionnaireInstance
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND questionnaire_id = ? AND questionnaire_version = ?", userID, questionnaireID, version).
		Where("status IN ?", ReleasedStatuses).
		Order("cycle DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *instanceRepo) ListSweepCandidates(dbc dbctx.Context, statuses []string) ([]*SweepCandidate, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*SweepCandidate{}
	if len(statuses) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Table("questionnaire_instances").
		Select(`questionnaire_instances.*,
			questionnaires.cycle_unit AS cycle_unit,
			questionnaires.type AS questionnaire_type,
			questionnaires.expires_after_days AS expires_after_days,
			questionnaires.finalises_after_days AS finalises_after_days,
			participants.ids AS participant_ids`).
		Joins("JOIN questionnaires ON questionnaires.id = questionnaire_instances.questionnaire_id AND questionnaires.version = questionnaire_instances.questionnaire_version").
		Joins("LEFT JOIN participants ON participants.pseudonym = questionnaire_instances.user_id").
		Where("questionnaire_instances.status IN ?", statuses).
		Order("questionnaire_instances.date_of_issue ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDs removes the instances together with their answers and queue
// rows.
func (r *instanceRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	tx := transaction.WithContext(dbc.Ctx)
	if err := tx.Where("questionnaire_instance_id IN ?", ids).Delete(&types.Answer{}).Error; err != nil {
		return 0, fmt.Errorf("delete answers: %w", err)
	}
	if err := tx.Where("questionnaire_instance_id IN ?", ids).Delete(&types.QueuedInstance{}).Error; err != nil {
		return 0, fmt.Errorf("delete queued instances: %w", err)
	}
	res := tx.Where("id IN ?", ids).Delete(&types.QuestionnaireInstance{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete instances: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *instanceRepo) UpdateStatus(dbc dbctx.Context, ids []uuid.UUID, status string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.QuestionnaireInstance{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// MarkReleasedTwice finalises a released_once instance; releasedAt becomes
// its second release date.
func (r *instanceRepo) MarkReleasedTwice(dbc dbctx.Context, id uuid.UUID, releasedAt time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.QuestionnaireInstance{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":             types.InstanceReleasedTwice,
			"date_of_release_v2": releasedAt,
			"updated_at":         time.Now(),
		}).Error
}
