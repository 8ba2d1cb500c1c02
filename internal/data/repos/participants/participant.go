package participants

import (
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

// ProbandQuery narrows the probands of one study.
type ProbandQuery struct {
	StudyID string
	// ExcludeOwnersOf drops probands that already own any instance of this
	// questionnaire id, regardless of version.
	ExcludeOwnersOf *int
}

type ParticipantRepo interface {
	Get(dbc dbctx.Context, pseudonym string) (*types.Participant, error)
	ListProbands(dbc dbctx.Context, q ProbandQuery) ([]*types.Participant, error)
	ListStudyIDs(dbc dbctx.Context, pseudonym string) ([]string, error)
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return &participantRepo{
		db:  db,
		log: baseLog.With("repo", "ParticipantRepo"),
	}
}

func (r *participantRepo) Get(dbc dbctx.Context, pseudonym string) (*types.Participant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if pseudonym == "" {
		return nil, nil
	}
	var rows []*types.Participant
	if err := transaction.WithContext(dbc.Ctx).
		Where("pseudonym = ?", pseudonym).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListProbands returns the study's probands that are not deleted.
func (r *participantRepo) ListProbands(dbc dbctx.Context, q ProbandQuery) ([]*types.Participant, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Participant
	if q.StudyID == "" {
		return out, nil
	}
	query := transaction.WithContext(dbc.Ctx).
		Model(&types.Participant{}).
		Joins("JOIN study_users ON study_users.user_id = participants.pseudonym").
		Where("study_users.study_id = ?", q.StudyID).
		Where("participants.role = ?", types.RoleProband).
		Where("participants.status IN ?", []string{types.ParticipantActive, types.ParticipantDeactivated})
	if q.ExcludeOwnersOf != nil {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM questionnaire_instances WHERE questionnaire_instances.user_id = participants.pseudonym AND questionnaire_instances.questionnaire_id = ?)",
			*q.ExcludeOwnersOf,
		)
	}
	if err := query.
		Select("participants.*").
		Order("participants.pseudonym ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *participantRepo) ListStudyIDs(dbc dbctx.Context, pseudonym string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []string{}
	if pseudonym == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.StudyMembership{}).
		Where("user_id = ?", pseudonym).
		Order("study_id ASC").
		Pluck("study_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
