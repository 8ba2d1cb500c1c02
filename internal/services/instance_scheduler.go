package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/ctxutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/condition"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
)

// InstanceScheduler reacts to study data changes by creating, retracting and
// chaining questionnaire instances. Every handler runs in one transaction and
// can be retried.
type InstanceScheduler interface {
	QuestionnaireInserted(dbc dbctx.Context, q *types.Questionnaire) error
	QuestionnaireUpdated(dbc dbctx.Context, old, updated *types.Questionnaire) error
	ParticipantUpdated(dbc dbctx.Context, old, updated *types.Participant) error
	ParticipantDeleted(dbc dbctx.Context, p *types.Participant) error
	ParticipantEnrolled(dbc dbctx.Context, m *types.StudyMembership) error
	ParticipantUnenrolled(dbc dbctx.Context, m *types.StudyMembership) error
	InstanceReleased(dbc dbctx.Context, old, updated *types.QuestionnaireInstance) error
}

type instanceScheduler struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  repos.Set
	mat    *materializer.Materializer
	delays *QueueDelayPolicy
	notify InstanceNotifier
}

func NewInstanceScheduler(
	db *gorm.DB,
	baseLog *logger.Logger,
	rs repos.Set,
	mat *materializer.Materializer,
	delays *QueueDelayPolicy,
	notify InstanceNotifier,
) InstanceScheduler {
	if delays == nil {
		delays = DefaultQueueDelayPolicy()
	}
	if notify == nil {
		notify = noopNotifier{}
	}
	return &instanceScheduler{
		db:     db,
		log:    baseLog.With("service", "InstanceScheduler"),
		repos:  rs,
		mat:    mat,
		delays: delays,
		notify: notify,
	}
}

var (
	supersededReminderStatuses = []string{types.InstanceActive, types.InstanceInactive, types.InstanceExpired}
	supersededInstanceStatuses = []string{types.InstanceActive, types.InstanceInactive}
)

// run executes fn in a transaction and announces the instances it created
// after commit.
func (s *instanceScheduler) run(dbc dbctx.Context, fn func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error)) error {
	dbc.Ctx = ctxutil.Default(dbc.Ctx)
	var created []*types.QuestionnaireInstance
	err := dbctx.InTx(dbc, s.db, func(inner dbctx.Context) error {
		var err error
		created, err = fn(inner)
		return err
	})
	if err != nil {
		return err
	}
	s.notify.Notify(dbc.Ctx, types.MessageCreated, created)
	return nil
}

func (s *instanceScheduler) QuestionnaireInserted(dbc dbctx.Context, q *types.Questionnaire) error {
	if q == nil {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		if q.Version > 1 {
			if err := s.retireOlderVersions(dbc, q); err != nil {
				return nil, err
			}
		}
		if q.IsHidden() {
			return nil, nil
		}
		return s.scheduleForStudy(dbc, q)
	})
}

// retireOlderVersions removes what a new version supersedes. Only once and
// spontan questionnaires are cleaned up; recurring ones keep their older
// instances.
func (s *instanceScheduler) retireOlderVersions(dbc dbctx.Context, q *types.Questionnaire) error {
	if q.CycleUnit != types.CycleUnitSpontan && q.CycleUnit != types.CycleUnitOnce {
		s.log.Warn("older versions keep their instances",
			"questionnaire_id", q.ID, "version", q.Version, "cycle_unit", q.CycleUnit)
		return nil
	}
	reminderIDs, err := s.repos.Instances.ListIDs(dbc, repos.InstanceFilter{
		QuestionnaireID: q.ID,
		BelowVersion:    q.Version,
		Statuses:        supersededReminderStatuses,
	})
	if err != nil {
		return fmt.Errorf("list superseded instances: %w", err)
	}
	if _, err := s.repos.Reminders.DeleteForInstances(dbc, reminderIDs); err != nil {
		return fmt.Errorf("delete superseded reminders: %w", err)
	}
	staleIDs, err := s.repos.Instances.ListIDs(dbc, repos.InstanceFilter{
		QuestionnaireID: q.ID,
		BelowVersion:    q.Version,
		Statuses:        supersededInstanceStatuses,
		Unanswered:      true,
	})
	if err != nil {
		return fmt.Errorf("list unanswered superseded instances: %w", err)
	}
	deleted, err := s.repos.Instances.DeleteByIDs(dbc, staleIDs)
	if err != nil {
		return fmt.Errorf("delete superseded instances: %w", err)
	}
	s.log.Info("retired older questionnaire versions",
		"questionnaire_id", q.ID, "version", q.Version, "deleted", deleted)
	return nil
}

func (s *instanceScheduler) QuestionnaireUpdated(dbc dbctx.Context, old, updated *types.Questionnaire) error {
	if old == nil || updated == nil {
		return nil
	}
	if old.Active && !updated.Active {
		s.log.Debug("questionnaire deactivated, instances kept", "questionnaire_id", updated.ID, "version", updated.Version)
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		ids, err := s.repos.Instances.ListIDs(dbc, repos.InstanceFilter{
			QuestionnaireID: old.ID,
			Version:         old.Version,
		})
		if err != nil {
			return nil, fmt.Errorf("list instances of questionnaire %d v%d: %w", old.ID, old.Version, err)
		}
		if _, err := s.repos.Reminders.DeleteForInstances(dbc, ids); err != nil {
			return nil, fmt.Errorf("delete reminders: %w", err)
		}
		deleted, err := s.repos.Instances.DeleteByIDs(dbc, ids)
		if err != nil {
			return nil, fmt.Errorf("delete instances: %w", err)
		}
		s.log.Info("dropped instances of updated questionnaire",
			"questionnaire_id", old.ID, "version", old.Version, "deleted", deleted)
		if updated.IsHidden() {
			return nil, nil
		}
		return s.scheduleForStudy(dbc, updated)
	})
}

func (s *instanceScheduler) ParticipantUpdated(dbc dbctx.Context, old, updated *types.Participant) error {
	if old == nil || updated == nil {
		return nil
	}
	if old.FirstLoggedInAt != nil || updated.FirstLoggedInAt == nil || updated.Role != types.RoleProband {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		studyIDs, err := s.repos.Participants.ListStudyIDs(dbc, updated.Pseudonym)
		if err != nil {
			return nil, fmt.Errorf("list studies: %w", err)
		}
		return s.scheduleForParticipant(dbc, updated, studyIDs, true)
	})
}

// ParticipantDeleted drops every instance the participant owns.
func (s *instanceScheduler) ParticipantDeleted(dbc dbctx.Context, p *types.Participant) error {
	if p == nil || p.Pseudonym == "" {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		return nil, s.dropInstances(dbc, repos.InstanceFilter{UserID: p.Pseudonym})
	})
}

func (s *instanceScheduler) ParticipantEnrolled(dbc dbctx.Context, m *types.StudyMembership) error {
	if m == nil || m.UserID == "" || m.StudyID == "" {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		p, err := s.repos.Participants.Get(dbc, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("load participant: %w", err)
		}
		if p == nil || p.Role != types.RoleProband {
			return nil, nil
		}
		return s.scheduleForParticipant(dbc, p, []string{m.StudyID}, false)
	})
}

func (s *instanceScheduler) ParticipantUnenrolled(dbc dbctx.Context, m *types.StudyMembership) error {
	if m == nil || m.UserID == "" || m.StudyID == "" {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		p, err := s.repos.Participants.Get(dbc, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("load participant: %w", err)
		}
		if p != nil && p.Role != types.RoleProband {
			return nil, nil
		}
		return nil, s.dropInstances(dbc, repos.InstanceFilter{UserID: m.UserID, StudyID: m.StudyID})
	})
}

func (s *instanceScheduler) dropInstances(dbc dbctx.Context, f repos.InstanceFilter) error {
	ids, err := s.repos.Instances.ListIDs(dbc, f)
	if err != nil {
		return fmt.Errorf("list participant instances: %w", err)
	}
	if _, err := s.repos.Reminders.DeleteForInstances(dbc, ids); err != nil {
		return fmt.Errorf("delete participant reminders: %w", err)
	}
	deleted, err := s.repos.Instances.DeleteByIDs(dbc, ids)
	if err != nil {
		return fmt.Errorf("delete participant instances: %w", err)
	}
	s.log.Info("dropped participant instances", "user_id", f.UserID, "study_id", f.StudyID, "deleted", deleted)
	return nil
}

// eligible applies the participant filters shared by every flow.
func eligible(q *types.Questionnaire, p *types.Participant) bool {
	if q.ComplianceNeeded && !p.ComplianceSamples {
		return false
	}
	if q.Publish == types.PublishTestProbands && !p.IsTestProband {
		return false
	}
	if p.Status != types.ParticipantActive && q.Type == types.TypeForProbands {
		return false
	}
	return true
}

// scheduleForStudy materializes q for every eligible proband of its study.
func (s *instanceScheduler) scheduleForStudy(dbc dbctx.Context, q *types.Questionnaire) ([]*types.QuestionnaireInstance, error) {
	cond, err := s.repos.Conditions.GetForQuestionnaire(dbc, q.ID, q.Version)
	if err != nil {
		return nil, fmt.Errorf("load condition: %w", err)
	}
	query := repos.ProbandQuery{StudyID: q.StudyID}
	if q.CycleUnit == types.CycleUnitOnce {
		query.ExcludeOwnersOf = &q.ID
	}
	probands, err := s.repos.Participants.ListProbands(dbc, query)
	if err != nil {
		return nil, fmt.Errorf("list probands of %s: %w", q.StudyID, err)
	}

	opts := materializer.BuildOptions{
		HasInternalCondition: cond != nil && cond.ConditionType == types.ConditionTypeInternalLast,
	}
	var drafts []*types.QuestionnaireInstance
	for _, p := range probands {
		if !eligible(q, p) {
			continue
		}
		subject := p
		if cond != nil && cond.ConditionType == types.ConditionTypeExternal {
			anchored, ok, err := s.resolveExternal(dbc, q, cond, p)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			subject = anchored
		}
		drafts = append(drafts, s.mat.Build(dbc.Ctx, q, subject, opts)...)
	}

	created, err := s.repos.Instances.CreateMissing(dbc, drafts)
	if err != nil {
		return nil, fmt.Errorf("create instances: %w", err)
	}
	s.log.Info("scheduled questionnaire for study",
		"questionnaire_id", q.ID, "version", q.Version, "study_id", q.StudyID,
		"probands", len(probands), "created", len(created))
	return created, nil
}

// resolveExternal decides whether p unlocks a questionnaire gated on another
// questionnaire's answer, and returns the participant with its login anchor
// moved to the release that unlocked it.
func (s *instanceScheduler) resolveExternal(dbc dbctx.Context, q *types.Questionnaire, cond *types.Condition, p *types.Participant) (*types.Participant, bool, error) {
	target, err := s.repos.Instances.LatestReleased(dbc, p.Pseudonym, cond.ConditionTargetQuestionnaire, cond.ConditionTargetQuestionnaireVersion)
	if err != nil {
		return nil, false, fmt.Errorf("load released target instance: %w", err)
	}
	if target == nil {
		return nil, false, nil
	}
	answers, err := s.repos.Answers.ListForOption(dbc, target.ID, cond.ConditionTargetAnswerOption)
	if err != nil {
		return nil, false, fmt.Errorf("load target answers: %w", err)
	}
	typ, err := s.valueType(dbc, cond.ConditionTargetAnswerOption)
	if err != nil {
		return nil, false, err
	}

	if q.Type == types.TypeForResearchTeam {
		if len(answers) == 0 {
			return nil, false, nil
		}
		return p, condition.IsMet(answers[len(answers)-1], cond, typ), nil
	}

	var releasedAt *time.Time
	var answer *types.Answer
	switch len(answers) {
	case 2:
		releasedAt, answer = target.DateOfReleaseV2, answers[1]
	case 1:
		releasedAt, answer = target.DateOfReleaseV1, answers[0]
	default:
		return nil, false, nil
	}
	if releasedAt == nil || !condition.IsMet(answer, cond, typ) {
		return nil, false, nil
	}
	return s.anchoredAt(p, *releasedAt), true, nil
}

// anchoredAt copies p with its login moved to the start of the day of t.
func (s *instanceScheduler) anchoredAt(p *types.Participant, t time.Time) *types.Participant {
	local := t.In(s.mat.Location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	cp := *p
	cp.FirstLoggedInAt = &midnight
	return &cp
}

func (s *instanceScheduler) valueType(dbc dbctx.Context, answerOptionID int) (condition.ValueType, error) {
	options, err := s.repos.AnswerOptions.GetByIDs(dbc, []int{answerOptionID})
	if err != nil {
		return condition.String, fmt.Errorf("load answer option %d: %w", answerOptionID, err)
	}
	ao, ok := options[answerOptionID]
	if !ok {
		return condition.String, nil
	}
	return condition.ValueTypeFor(ao.AnswerTypeID), nil
}

// scheduleForParticipant materializes the latest active questionnaires of
// the given studies for one participant. Externally conditioned
// questionnaires are left to the release flow.
func (s *instanceScheduler) scheduleForParticipant(dbc dbctx.Context, p *types.Participant, studyIDs []string, onlyLoginDependent bool) ([]*types.QuestionnaireInstance, error) {
	if p.Status != types.ParticipantActive {
		return nil, nil
	}
	questionnaires, err := s.repos.Questionnaires.ListLatestForStudies(dbc, studyIDs, true)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	ids := make([]int, 0, len(questionnaires))
	for _, q := range questionnaires {
		ids = append(ids, q.ID)
	}
	conds, err := s.repos.Conditions.ListForQuestionnaires(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	condByOwner := make(map[[2]int]*types.Condition, len(conds))
	for _, c := range conds {
		key := [2]int{c.ConditionQuestionnaireID, c.ConditionQuestionnaireVersion}
		if _, ok := condByOwner[key]; !ok {
			condByOwner[key] = c
		}
	}

	var drafts []*types.QuestionnaireInstance
	for _, q := range questionnaires {
		if q.IsHidden() || !eligible(q, p) {
			continue
		}
		cond := condByOwner[[2]int{q.ID, q.Version}]
		if cond != nil && cond.ConditionType == types.ConditionTypeExternal {
			continue
		}
		drafts = append(drafts, s.mat.Build(dbc.Ctx, q, p, materializer.BuildOptions{
			HasInternalCondition: cond != nil && cond.ConditionType == types.ConditionTypeInternalLast,
			OnlyLoginDependent:   onlyLoginDependent,
		})...)
	}

	created, err := s.repos.Instances.CreateMissing(dbc, drafts)
	if err != nil {
		return nil, fmt.Errorf("create instances: %w", err)
	}
	s.log.Info("scheduled questionnaires for participant",
		"user_id", p.Pseudonym, "studies", len(studyIDs), "created", len(created))
	return created, nil
}
