package services

import (
	"fmt"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/condition"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
)

func isReleaseStatus(status string) bool {
	switch status {
	case types.InstanceReleasedOnce, types.InstanceReleasedTwice, types.InstanceReleased:
		return true
	default:
		return false
	}
}

// answerVersion is the answer versioning a release made final.
func answerVersion(qi *types.QuestionnaireInstance) int {
	switch qi.Status {
	case types.InstanceReleasedOnce:
		return 1
	case types.InstanceReleasedTwice:
		return 2
	default:
		return qi.ReleaseVersion
	}
}

// conditionAnswer pairs a condition with the released answer it reads.
type conditionAnswer struct {
	cond   *types.Condition
	answer *types.Answer
}

func (s *instanceScheduler) InstanceReleased(dbc dbctx.Context, old, updated *types.QuestionnaireInstance) error {
	if old == nil || updated == nil || !isReleaseStatus(updated.Status) {
		return nil
	}
	if old.Status == updated.Status && old.ReleaseVersion == updated.ReleaseVersion {
		return nil
	}
	return s.run(dbc, func(dbc dbctx.Context) ([]*types.QuestionnaireInstance, error) {
		return s.onRelease(dbc, updated)
	})
}

func (s *instanceScheduler) onRelease(dbc dbctx.Context, qi *types.QuestionnaireInstance) ([]*types.QuestionnaireInstance, error) {
	version := answerVersion(qi)
	own, err := s.repos.Questionnaires.Get(dbc, qi.QuestionnaireID, qi.QuestionnaireVersion)
	if err != nil {
		return nil, fmt.Errorf("load released questionnaire: %w", err)
	}
	if own == nil {
		s.log.Warn("released instance without questionnaire",
			"questionnaire_id", qi.QuestionnaireID, "version", qi.QuestionnaireVersion)
		return nil, nil
	}
	pairs, err := s.conditionAnswers(dbc, qi, version)
	if err != nil {
		return nil, err
	}

	chainSpontan := qi.Status == types.InstanceReleasedOnce && own.CycleUnit == types.CycleUnitSpontan
	if !chainSpontan && len(pairs) == 0 {
		return nil, nil
	}

	p, err := s.repos.Participants.Get(dbc, qi.UserID)
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if p == nil || p.IsDeleted() {
		return nil, nil
	}
	p = s.anchoredAt(p, s.mat.Now())

	var drafts []*types.QuestionnaireInstance
	if chainSpontan {
		drafts = append(drafts, s.mat.ChainNext(dbc.Ctx, own, qi, p))
	}

	queued := map[types.InstanceKey]struct{}{}
	for _, pair := range pairs {
		out, queue, err := s.applyCondition(dbc, qi, version, pair, p)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, out...)
		for _, d := range queue {
			queued[d.Key()] = struct{}{}
		}
	}

	created, err := s.repos.Instances.CreateMissing(dbc, drafts)
	if err != nil {
		return nil, fmt.Errorf("create conditional instances: %w", err)
	}
	if err := s.enqueue(dbc, created, queued); err != nil {
		return nil, err
	}
	s.log.Info("processed released instance",
		"user_id", qi.UserID, "questionnaire_id", qi.QuestionnaireID, "answer_version", version,
		"conditions", len(pairs), "created", len(created))
	return created, nil
}

// conditionAnswers loads the conditions reading this instance, restricted to
// the newest version of each owning questionnaire and paired with the answer
// stored at version.
func (s *instanceScheduler) conditionAnswers(dbc dbctx.Context, qi *types.QuestionnaireInstance, version int) ([]conditionAnswer, error) {
	conds, err := s.repos.Conditions.ListTargeting(dbc, qi.QuestionnaireID, qi.QuestionnaireVersion)
	if err != nil {
		return nil, fmt.Errorf("load targeting conditions: %w", err)
	}
	if len(conds) == 0 {
		return nil, nil
	}
	owners := make([]int, 0, len(conds))
	for _, c := range conds {
		owners = append(owners, c.ConditionQuestionnaireID)
	}
	latest, err := s.repos.Questionnaires.LatestVersions(dbc, owners)
	if err != nil {
		return nil, fmt.Errorf("load latest versions: %w", err)
	}
	answers, err := s.repos.Answers.ListForVersion(dbc, qi.ID, version)
	if err != nil {
		return nil, fmt.Errorf("load released answers: %w", err)
	}
	byOption := make(map[int]*types.Answer, len(answers))
	for _, a := range answers {
		byOption[a.AnswerOptionID] = a
	}

	out := make([]conditionAnswer, 0, len(conds))
	for _, c := range conds {
		if v, ok := latest[c.ConditionQuestionnaireID]; !ok || v != c.ConditionQuestionnaireVersion {
			continue
		}
		a, ok := byOption[c.ConditionTargetAnswerOption]
		if !ok {
			continue
		}
		out = append(out, conditionAnswer{cond: c, answer: a})
	}
	return out, nil
}

// applyCondition returns the drafts one condition unlocks and the subset
// that must be queued for the participant. Retractions are applied directly.
func (s *instanceScheduler) applyCondition(dbc dbctx.Context, released *types.QuestionnaireInstance, version int, pair conditionAnswer, p *types.Participant) ([]*types.QuestionnaireInstance, []*types.QuestionnaireInstance, error) {
	cond := pair.cond
	q, err := s.repos.Questionnaires.Get(dbc, cond.ConditionQuestionnaireID, cond.ConditionQuestionnaireVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("load conditional questionnaire: %w", err)
	}
	if q == nil || !q.Active || q.IsHidden() || !eligible(q, p) {
		return nil, nil, nil
	}
	typ, err := s.valueType(dbc, cond.ConditionTargetAnswerOption)
	if err != nil {
		return nil, nil, err
	}
	met := condition.IsMet(pair.answer, cond, typ)

	previouslyMet := func() (bool, error) {
		if version <= 1 {
			return false, nil
		}
		prior, err := s.answerAt(dbc, released, cond.ConditionTargetAnswerOption, version-1)
		if err != nil {
			return false, err
		}
		return condition.IsMet(prior, cond, typ), nil
	}

	switch cond.ConditionType {
	case types.ConditionTypeExternal:
		if !met {
			wasMet, err := previouslyMet()
			if err != nil || !wasMet {
				return nil, nil, err
			}
			return nil, nil, s.retract(dbc, q, p)
		}
		if version > 1 {
			wasMet, err := previouslyMet()
			if err != nil || wasMet {
				return nil, nil, err
			}
		}
		drafts := s.mat.Build(dbc.Ctx, q, p, materializer.BuildOptions{})
		var queue []*types.QuestionnaireInstance
		if q.Type == types.TypeForProbands {
			for _, d := range drafts {
				if d.Status == types.InstanceActive {
					queue = append(queue, d)
				}
			}
		}
		return drafts, queue, nil

	case types.ConditionTypeInternalLast:
		if !met || version > 2 {
			return nil, nil, nil
		}
		if version == 2 {
			wasMet, err := previouslyMet()
			if err != nil || wasMet {
				return nil, nil, err
			}
		}
		next := s.mat.ChainNext(dbc.Ctx, q, released, p)
		if next == nil {
			return nil, nil, nil
		}
		return []*types.QuestionnaireInstance{next}, nil, nil
	}
	return nil, nil, nil
}

func (s *instanceScheduler) answerAt(dbc dbctx.Context, qi *types.QuestionnaireInstance, answerOptionID, version int) (*types.Answer, error) {
	history, err := s.repos.Answers.ListForOption(dbc, qi.ID, answerOptionID)
	if err != nil {
		return nil, fmt.Errorf("load answer history: %w", err)
	}
	for _, a := range history {
		if a.Versioning == version {
			return a, nil
		}
	}
	return nil, nil
}

// retract removes the participant's unanswered instances of q after the
// answer that unlocked them no longer holds.
func (s *instanceScheduler) retract(dbc dbctx.Context, q *types.Questionnaire, p *types.Participant) error {
	ids, err := s.repos.Instances.ListIDs(dbc, repos.InstanceFilter{
		QuestionnaireID: q.ID,
		Version:         q.Version,
		UserID:          p.Pseudonym,
		Unanswered:      true,
	})
	if err != nil {
		return fmt.Errorf("list retractable instances: %w", err)
	}
	if _, err := s.repos.Reminders.DeleteForInstances(dbc, ids); err != nil {
		return fmt.Errorf("delete retracted reminders: %w", err)
	}
	deleted, err := s.repos.Instances.DeleteByIDs(dbc, ids)
	if err != nil {
		return fmt.Errorf("delete retracted instances: %w", err)
	}
	s.log.Info("retracted conditional instances",
		"user_id", p.Pseudonym, "questionnaire_id", q.ID, "version", q.Version, "deleted", deleted)
	return nil
}

// enqueue queues the created instances whose identity was marked for it.
func (s *instanceScheduler) enqueue(dbc dbctx.Context, created []*types.QuestionnaireInstance, marked map[types.InstanceKey]struct{}) error {
	if len(marked) == 0 {
		return nil
	}
	now := s.mat.Now()
	var rows []*types.QueuedInstance
	for _, qi := range created {
		if _, ok := marked[qi.Key()]; !ok {
			continue
		}
		rows = append(rows, &types.QueuedInstance{
			UserID:                  qi.UserID,
			QuestionnaireInstanceID: qi.ID,
			DateOfQueue:             now.Add(s.delays.DelayFor(qi.QuestionnaireName)),
		})
	}
	if _, err := s.repos.Queue.Create(dbc, rows); err != nil {
		return fmt.Errorf("queue instances: %w", err)
	}
	return nil
}

