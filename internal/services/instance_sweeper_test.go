package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/testutil"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
)

var sweepNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type sweeperFixture struct {
	ctx    context.Context
	db     *gorm.DB
	repos  repos.Set
	svc    InstanceSweeper
	notify *recordingNotifier
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	rs := repos.NewSet(db, log)
	notify := &recordingNotifier{}
	return &sweeperFixture{
		ctx:    context.Background(),
		db:     db,
		repos:  rs,
		svc:    NewInstanceSweeper(db, log, rs, expiration.NewOracle(nil, time.UTC), notify, func() time.Time { return sweepNow }),
		notify: notify,
	}
}

func (f *sweeperFixture) get(t *testing.T, id uuid.UUID) *types.QuestionnaireInstance {
	t.Helper()
	qi, err := f.repos.Instances.GetByID(dbctx.Context{Ctx: f.ctx}, id)
	require.NoError(t, err)
	require.NotNil(t, qi)
	return qi
}

func (f *sweeperFixture) releasedAt(t *testing.T, qi *types.QuestionnaireInstance, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&types.QuestionnaireInstance{}).Where("id = ?", qi.ID).
		Update("date_of_release_v1", at).Error)
}

func TestSweepExpiresAndUnqueues(t *testing.T) {
	f := newSweeperFixture(t)
	q := testutil.Questionnaire(1, 1, "S1")
	q.ExpiresAfterDays = 30
	testutil.SeedQuestionnaire(t, f.ctx, f.db, q)
	testutil.SeedParticipant(t, f.ctx, f.db, testutil.Proband("p1", &sweepNow), "S1")

	stale := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 1, types.InstanceActive, sweepNow.AddDate(0, 0, -31))
	testutil.SeedQueued(t, f.ctx, f.db, stale, sweepNow)
	testutil.SeedReminder(t, f.ctx, f.db, stale, sweepNow)
	fresh := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 2, types.InstanceActive, sweepNow.AddDate(0, 0, -29))

	res, err := f.svc.Sweep(f.ctx, types.SweepTriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Activated)

	assert.Equal(t, types.InstanceExpired, f.get(t, stale.ID).Status)
	assert.Equal(t, types.InstanceActive, f.get(t, fresh.ID).Status)

	dbc := dbctx.Context{Ctx: f.ctx}
	queued, err := f.repos.Queue.ListForUser(dbc, "p1")
	require.NoError(t, err)
	assert.Empty(t, queued)
	reminders, err := f.repos.Reminders.ListForInstances(dbc, []uuid.UUID{stale.ID})
	require.NoError(t, err)
	assert.Empty(t, reminders)
	assert.Equal(t, 1, f.notify.count(types.MessageExpired))
}

func TestSweepNeverExpiresSpontanOrResearchTeam(t *testing.T) {
	f := newSweeperFixture(t)
	spontan := testutil.Questionnaire(1, 1, "S1")
	spontan.CycleUnit = types.CycleUnitSpontan
	spontan.ExpiresAfterDays = 1
	testutil.SeedQuestionnaire(t, f.ctx, f.db, spontan)
	research := testutil.Questionnaire(2, 1, "S1")
	research.Type = types.TypeForResearchTeam
	research.ExpiresAfterDays = 1
	testutil.SeedQuestionnaire(t, f.ctx, f.db, research)

	a := testutil.SeedInstance(t, f.ctx, f.db, spontan, "p1", 1, types.InstanceActive, sweepNow.AddDate(0, 0, -31))
	b := testutil.SeedInstance(t, f.ctx, f.db, research, "p1", 1, types.InstanceInProgress, sweepNow.AddDate(0, 0, -31))

	res, err := f.svc.Sweep(f.ctx, types.SweepTriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Expired)
	assert.Equal(t, types.InstanceActive, f.get(t, a.ID).Status)
	assert.Equal(t, types.InstanceInProgress, f.get(t, b.ID).Status)
}

func TestSweepActivatesDueInstances(t *testing.T) {
	f := newSweeperFixture(t)
	q := testutil.Questionnaire(1, 1, "S1")
	q.ExpiresAfterDays = 30
	testutil.SeedQuestionnaire(t, f.ctx, f.db, q)

	due := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 1, types.InstanceInactive, sweepNow.Add(-time.Hour))
	future := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 2, types.InstanceInactive, sweepNow.Add(time.Hour))
	overdue := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 3, types.InstanceInactive, sweepNow.AddDate(0, 0, -40))

	res, err := f.svc.Sweep(f.ctx, types.SweepTriggerTicker)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Activated)
	assert.Equal(t, 1, res.Expired)

	assert.Equal(t, types.InstanceActive, f.get(t, due.ID).Status)
	assert.Equal(t, types.InstanceInactive, f.get(t, future.ID).Status)
	assert.Equal(t, types.InstanceExpired, f.get(t, overdue.ID).Status)
	assert.Equal(t, 1, f.notify.count(types.MessageActivated))
}

func TestSweepFinalisesReleasedOnce(t *testing.T) {
	f := newSweeperFixture(t)
	q := testutil.Questionnaire(1, 1, "S1")
	q.FinalisesAfterDays = 5
	testutil.SeedQuestionnaire(t, f.ctx, f.db, q)

	old := testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 1, types.InstanceReleasedOnce, sweepNow.AddDate(0, 0, -12))
	f.releasedAt(t, old, sweepNow.AddDate(0, 0, -10))
	testutil.SeedAnswer(t, f.ctx, f.db, old.ID, 100, 1, "Ja")
	testutil.SeedAnswer(t, f.ctx, f.db, old.ID, 101, 1, "3")
	recent := testutil.SeedInstance(t, f.ctx, f.db, q, "p2", 1, types.InstanceReleasedOnce, sweepNow.AddDate(0, 0, -3))
	f.releasedAt(t, recent, sweepNow.AddDate(0, 0, -2))

	res, err := f.svc.Sweep(f.ctx, types.SweepTriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReleasedTwice)

	got := f.get(t, old.ID)
	assert.Equal(t, types.InstanceReleasedTwice, got.Status)
	require.NotNil(t, got.DateOfReleaseV2)
	assert.True(t, got.DateOfReleaseV2.Equal(sweepNow.AddDate(0, 0, -10)))
	assert.Equal(t, types.InstanceReleasedOnce, f.get(t, recent.ID).Status)

	v2, err := f.repos.Answers.ListForVersion(dbctx.Context{Ctx: f.ctx}, old.ID, 2)
	require.NoError(t, err)
	require.Len(t, v2, 2)
	assert.Equal(t, "Ja", v2[0].Value)
	assert.Equal(t, "3", v2[1].Value)
}

func TestSweepRecordsRunLedger(t *testing.T) {
	f := newSweeperFixture(t)
	q := testutil.Questionnaire(1, 1, "S1")
	testutil.SeedQuestionnaire(t, f.ctx, f.db, q)
	testutil.SeedInstance(t, f.ctx, f.db, q, "p1", 1, types.InstanceInactive, sweepNow.Add(-time.Minute))

	latest, err := f.svc.Latest(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	res, err := f.svc.Sweep(f.ctx, types.SweepTriggerTemporal)
	require.NoError(t, err)

	latest, err = f.svc.Latest(f.ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, res.RunID, latest.ID)
	assert.Equal(t, types.SweepStatusSucceeded, latest.Status)
	assert.Equal(t, types.SweepTriggerTemporal, latest.Trigger)
	assert.Equal(t, 1, latest.Scanned)
	assert.Equal(t, 1, latest.Activated)
	require.NotNil(t, latest.FinishedAt)
	var recorded SweepResult
	require.NoError(t, json.Unmarshal(latest.Result, &recorded))
	assert.Equal(t, res.RunID, recorded.RunID)
	assert.Equal(t, 1, recorded.Activated)
	assert.True(t, recorded.StartedAt.Equal(sweepNow))

	again, err := f.svc.Sweep(f.ctx, types.SweepTriggerTemporal)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Activated)
}
