// Package materializer turns issue dates into questionnaire instance drafts
// with their initial status.
package materializer

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/cycle"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
)

// Expirer is the part of expiration.Oracle the materializer needs.
type Expirer interface {
	IsExpired(ctx context.Context, s expiration.Subject, now time.Time) bool
}

type Config struct {
	Location                *time.Location
	DefaultNotificationTime cycle.ClockTime
	Now                     func() time.Time
}

type BuildOptions struct {
	HasInternalCondition bool
	OnlyLoginDependent   bool
}

type Materializer struct {
	expirer Expirer
	cfg     Config
}

func New(expirer Expirer, cfg Config) *Materializer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultNotificationTime == (cycle.ClockTime{}) {
		cfg.DefaultNotificationTime = cycle.ClockTime{Hour: 18}
	}
	return &Materializer{expirer: expirer, cfg: cfg}
}

// Now is the materializer's clock.
func (m *Materializer) Now() time.Time { return m.cfg.Now() }

// Location is the calendar all issue dates are computed in.
func (m *Materializer) Location() *time.Location {
	if m.cfg.Location == nil {
		return time.UTC
	}
	return m.cfg.Location
}

func (m *Materializer) cycleOptions(now time.Time) cycle.Options {
	return cycle.Options{
		Location:                m.Location(),
		DefaultNotificationTime: m.cfg.DefaultNotificationTime,
		Now:                     now,
	}
}

// Build returns the participant's instance series for q, numbered from
// cycle 1. Missing inputs give an empty result.
func (m *Materializer) Build(ctx context.Context, q *types.Questionnaire, p *types.Participant, opts BuildOptions) []*types.QuestionnaireInstance {
	if q == nil || p == nil {
		return []*types.QuestionnaireInstance{}
	}
	now := m.cfg.Now()
	copts := m.cycleOptions(now)
	copts.HasInternalCondition = opts.HasInternalCondition
	copts.OnlyLoginDependent = opts.OnlyLoginDependent

	dates := cycle.Dates(q, p, copts)
	out := make([]*types.QuestionnaireInstance, 0, len(dates))
	for i, date := range dates {
		out = append(out, m.draft(ctx, q, p, i+1, date, now))
	}
	return out
}

// ChainNext returns the occurrence that follows prev.
func (m *Materializer) ChainNext(ctx context.Context, q *types.Questionnaire, prev *types.QuestionnaireInstance, p *types.Participant) *types.QuestionnaireInstance {
	if q == nil || prev == nil {
		return nil
	}
	now := m.cfg.Now()
	next := cycle.NextIssueDate(q, prev.DateOfIssue, m.cycleOptions(now))
	userID := prev.UserID
	if p != nil {
		userID = p.Pseudonym
	}
	draft := m.draft(ctx, q, p, prev.Cycle+1, next, now)
	draft.UserID = userID
	return draft
}

// StatusFor applies the initial status rule to an issue date.
func (m *Materializer) StatusFor(ctx context.Context, q *types.Questionnaire, p *types.Participant, date, now time.Time) string {
	if date.After(now) {
		return types.InstanceInactive
	}
	if q.CycleUnit != types.CycleUnitSpontan && q.Type == types.TypeForProbands && m.expirer != nil {
		subject := expiration.Subject{IssuedAt: date, ExpiresAfterDays: q.ExpiresAfterDays}
		if p != nil {
			subject.ParticipantKey = p.FollowUpKey()
		}
		if m.expirer.IsExpired(ctx, subject, now) {
			return types.InstanceExpired
		}
	}
	return types.InstanceActive
}

func (m *Materializer) draft(ctx context.Context, q *types.Questionnaire, p *types.Participant, n int, date, now time.Time) *types.QuestionnaireInstance {
	qi := &types.QuestionnaireInstance{
		ID:                   uuid.New(),
		StudyID:              q.StudyID,
		QuestionnaireID:      q.ID,
		QuestionnaireVersion: q.Version,
		QuestionnaireName:    q.Name,
		DateOfIssue:          date,
		Cycle:                n,
		Status:               m.StatusFor(ctx, q, p, date, now),
		ReleaseVersion:       0,
	}
	if p != nil {
		qi.UserID = p.Pseudonym
	}
	return qi
}
