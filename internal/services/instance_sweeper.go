package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/observability"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/ctxutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
)

// SweepResult summarises one lifecycle sweep.
type SweepResult struct {
	RunID         uuid.UUID `json:"run_id"`
	Trigger       string    `json:"trigger"`
	Scanned       int       `json:"scanned"`
	Activated     int       `json:"activated"`
	Expired       int       `json:"expired"`
	ReleasedTwice int       `json:"released_twice"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// InstanceSweeper moves instance statuses along with wall-clock time.
type InstanceSweeper interface {
	Sweep(ctx context.Context, trigger string) (*SweepResult, error)
	Latest(ctx context.Context) (*types.SweepRun, error)
}

type instanceSweeper struct {
	db      *gorm.DB
	log     *logger.Logger
	repos   repos.Set
	expirer materializer.Expirer
	notify  InstanceNotifier
	now     func() time.Time
}

func NewInstanceSweeper(
	db *gorm.DB,
	baseLog *logger.Logger,
	rs repos.Set,
	expirer materializer.Expirer,
	notify InstanceNotifier,
	now func() time.Time,
) InstanceSweeper {
	if notify == nil {
		notify = noopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &instanceSweeper{
		db:      db,
		log:     baseLog.With("service", "InstanceSweeper"),
		repos:   rs,
		expirer: expirer,
		notify:  notify,
		now:     now,
	}
}

var sweepStatuses = []string{
	types.InstanceInactive,
	types.InstanceActive,
	types.InstanceInProgress,
	types.InstanceReleasedOnce,
}

// sweepPlan is the set of transitions decided for one sweep.
type sweepPlan struct {
	expired       []*types.QuestionnaireInstance
	activated     []*types.QuestionnaireInstance
	releasedTwice []*types.QuestionnaireInstance
}

func (s *instanceSweeper) Sweep(ctx context.Context, trigger string) (*SweepResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := observability.StartSpan(ctx, "instances.sweep", attribute.String("sweep.trigger", trigger))
	res, err := s.sweep(ctx, trigger)
	observability.EndSpan(span, err)
	return res, err
}

func (s *instanceSweeper) sweep(ctx context.Context, trigger string) (*SweepResult, error) {
	started := s.now()
	run, err := s.repos.SweepRuns.Create(dbctx.Context{Ctx: ctx}, &types.SweepRun{
		Trigger:   trigger,
		Status:    types.SweepStatusRunning,
		StartedAt: started,
	})
	if err != nil {
		return nil, fmt.Errorf("record sweep run: %w", err)
	}
	res := &SweepResult{RunID: run.ID, Trigger: trigger, StartedAt: started}

	var plan sweepPlan
	err = dbctx.InTx(dbctx.Context{Ctx: ctx}, s.db, func(dbc dbctx.Context) error {
		candidates, err := s.repos.Instances.ListSweepCandidates(dbc, sweepStatuses)
		if err != nil {
			return fmt.Errorf("list sweep candidates: %w", err)
		}
		res.Scanned = len(candidates)
		plan = s.plan(ctx, candidates, started)
		return s.apply(dbc, plan)
	})
	res.FinishedAt = s.now()
	if err != nil {
		s.finish(ctx, run.ID, res, err)
		s.log.Error("sweep failed", "run_id", run.ID, "trigger", trigger, "error", err)
		return nil, err
	}
	res.Expired = len(plan.expired)
	res.Activated = len(plan.activated)
	res.ReleasedTwice = len(plan.releasedTwice)
	s.finish(ctx, run.ID, res, nil)

	s.notify.Notify(ctx, types.MessageActivated, plan.activated)
	s.notify.Notify(ctx, types.MessageExpired, plan.expired)
	s.log.Info("sweep finished",
		"run_id", run.ID, "trigger", trigger, "scanned", res.Scanned,
		"activated", res.Activated, "expired", res.Expired, "released_twice", res.ReleasedTwice)
	return res, nil
}

// plan decides each candidate's transition. Expiry wins over activation.
func (s *instanceSweeper) plan(ctx context.Context, candidates []*repos.SweepCandidate, now time.Time) sweepPlan {
	var p sweepPlan
	for _, c := range candidates {
		qi := c.Instance
		if qi.DateOfIssue.After(now) {
			continue
		}
		switch qi.Status {
		case types.InstanceInactive, types.InstanceActive, types.InstanceInProgress:
			if s.expires(ctx, c, now) {
				qi.Status = types.InstanceExpired
				p.expired = append(p.expired, &qi)
				continue
			}
			if qi.Status == types.InstanceInactive {
				qi.Status = types.InstanceActive
				p.activated = append(p.activated, &qi)
			}
		case types.InstanceReleasedOnce:
			if qi.DateOfReleaseV1 != nil && qi.DateOfReleaseV1.AddDate(0, 0, c.FinalisesAfterDays).Before(now) {
				released := *qi.DateOfReleaseV1
				qi.Status = types.InstanceReleasedTwice
				qi.DateOfReleaseV2 = &released
				p.releasedTwice = append(p.releasedTwice, &qi)
			}
		}
	}
	return p
}

func (s *instanceSweeper) expires(ctx context.Context, c *repos.SweepCandidate, now time.Time) bool {
	if c.CycleUnit == types.CycleUnitSpontan || c.QuestionnaireType != types.TypeForProbands || s.expirer == nil {
		return false
	}
	subject := expiration.Subject{
		IssuedAt:         c.Instance.DateOfIssue,
		ExpiresAfterDays: c.ExpiresAfterDays,
	}
	if c.ParticipantIDs != nil {
		subject.ParticipantKey = *c.ParticipantIDs
	}
	return s.expirer.IsExpired(ctx, subject, now)
}

func ids(instances []*types.QuestionnaireInstance) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(instances))
	for _, qi := range instances {
		out = append(out, qi.ID)
	}
	return out
}

func (s *instanceSweeper) apply(dbc dbctx.Context, p sweepPlan) error {
	expired := ids(p.expired)
	if _, err := s.repos.Instances.UpdateStatus(dbc, expired, types.InstanceExpired); err != nil {
		return fmt.Errorf("expire instances: %w", err)
	}
	if _, err := s.repos.Queue.DeleteForInstances(dbc, expired); err != nil {
		return fmt.Errorf("unqueue expired instances: %w", err)
	}
	if _, err := s.repos.Reminders.DeleteForInstances(dbc, expired); err != nil {
		return fmt.Errorf("delete reminders of expired instances: %w", err)
	}
	if _, err := s.repos.Instances.UpdateStatus(dbc, ids(p.activated), types.InstanceActive); err != nil {
		return fmt.Errorf("activate instances: %w", err)
	}
	for _, qi := range p.releasedTwice {
		if err := s.repos.Instances.MarkReleasedTwice(dbc, qi.ID, *qi.DateOfReleaseV2); err != nil {
			return fmt.Errorf("finalise instance %s: %w", qi.ID, err)
		}
		if _, err := s.repos.Answers.CopyVersion(dbc, qi.ID, 1, 2); err != nil {
			return fmt.Errorf("copy answers of instance %s: %w", qi.ID, err)
		}
	}
	return nil
}

// finish records the outcome on the run ledger. Ledger failures are logged
// only; they never fail a sweep.
func (s *instanceSweeper) finish(ctx context.Context, runID uuid.UUID, res *SweepResult, sweepErr error) {
	finished := res.FinishedAt
	updates := map[string]interface{}{
		"finished_at": finished,
		"scanned":     res.Scanned,
	}
	if sweepErr != nil {
		updates["status"] = types.SweepStatusFailed
		updates["error"] = sweepErr.Error()
	} else {
		raw, _ := json.Marshal(res)
		updates["status"] = types.SweepStatusSucceeded
		updates["activated"] = res.Activated
		updates["expired"] = res.Expired
		updates["released_twice"] = res.ReleasedTwice
		updates["result"] = datatypes.JSON(raw)
	}
	if err := s.repos.SweepRuns.UpdateFields(dbctx.Context{Ctx: ctx}, runID, updates); err != nil {
		s.log.Warn("record sweep outcome failed", "run_id", runID, "error", err)
	}
}

func (s *instanceSweeper) Latest(ctx context.Context) (*types.SweepRun, error) {
	return s.repos.SweepRuns.GetLatest(dbctx.Context{Ctx: ctxutil.Default(ctx)})
}
