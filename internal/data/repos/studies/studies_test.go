package studies

import (
	"context"
	"testing"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/testutil"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
)

func TestQuestionnaireRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewQuestionnaireRepo(db, testutil.Logger(t))

	testutil.SeedQuestionnaire(t, ctx, tx, testutil.Questionnaire(1, 1, "S1"))
	testutil.SeedQuestionnaire(t, ctx, tx, testutil.Questionnaire(1, 2, "S1"))
	inactive := testutil.Questionnaire(2, 3, "S1")
	inactive.Active = false
	testutil.SeedQuestionnaire(t, ctx, tx, inactive)
	testutil.SeedQuestionnaire(t, ctx, tx, testutil.Questionnaire(2, 1, "S1"))
	testutil.SeedQuestionnaire(t, ctx, tx, testutil.Questionnaire(3, 1, "S2"))

	got, err := repo.Get(dbc, 1, 2)
	if err != nil || got == nil || got.Version != 2 {
		t.Fatalf("Get: err=%v got=%+v", err, got)
	}
	if missing, err := repo.Get(dbc, 1, 9); err != nil || missing != nil {
		t.Fatalf("Get missing: err=%v got=%+v", err, missing)
	}

	latest, err := repo.GetLatest(dbc, 2)
	if err != nil || latest == nil || latest.Version != 3 {
		t.Fatalf("GetLatest: err=%v got=%+v", err, latest)
	}

	versions, err := repo.LatestVersions(dbc, []int{1, 2, 99})
	if err != nil {
		t.Fatalf("LatestVersions: %v", err)
	}
	if versions[1] != 2 || versions[2] != 3 || len(versions) != 2 {
		t.Fatalf("LatestVersions: want={1:2 2:3} got=%v", versions)
	}

	all, err := repo.ListLatestForStudies(dbc, []string{"S1"}, false)
	if err != nil {
		t.Fatalf("ListLatestForStudies: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 || all[0].Version != 2 || all[1].Version != 3 {
		t.Fatalf("ListLatestForStudies: got=%+v", all)
	}
	activeOnly, err := repo.ListLatestForStudies(dbc, []string{"S1", "S2"}, true)
	if err != nil {
		t.Fatalf("ListLatestForStudies active: %v", err)
	}
	if len(activeOnly) != 2 || activeOnly[0].ID != 1 || activeOnly[1].ID != 3 {
		t.Fatalf("ListLatestForStudies active: got=%+v", activeOnly)
	}
	if empty, err := repo.ListLatestForStudies(dbc, nil, true); err != nil || len(empty) != 0 {
		t.Fatalf("ListLatestForStudies empty: err=%v len=%d", err, len(empty))
	}
}

func TestConditionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewConditionRepo(db, testutil.Logger(t))

	external := testutil.SeedCondition(t, ctx, tx, &types.Condition{
		ID:                                  1,
		ConditionType:                       types.ConditionTypeExternal,
		ConditionQuestionnaireID:            20,
		ConditionQuestionnaireVersion:       1,
		ConditionTargetQuestionnaire:        10,
		ConditionTargetQuestionnaireVersion: 1,
		ConditionTargetAnswerOption:         100,
		ConditionOperand:                    "==",
		ConditionValue:                      "Ja",
	})
	testutil.SeedCondition(t, ctx, tx, &types.Condition{
		ID:                                  2,
		ConditionType:                       types.ConditionTypeInternalLast,
		ConditionQuestionnaireID:            10,
		ConditionQuestionnaireVersion:       1,
		ConditionTargetQuestionnaire:        10,
		ConditionTargetQuestionnaireVersion: 1,
		ConditionTargetAnswerOption:         101,
		ConditionOperand:                    "==",
		ConditionValue:                      "Ja",
	})

	got, err := repo.GetForQuestionnaire(dbc, 20, 1)
	if err != nil || got == nil || got.ID != external.ID {
		t.Fatalf("GetForQuestionnaire: err=%v got=%+v", err, got)
	}
	if got.Link() != types.LinkOr {
		t.Fatalf("Link: want=%s got=%s", types.LinkOr, got.Link())
	}
	if none, err := repo.GetForQuestionnaire(dbc, 20, 2); err != nil || none != nil {
		t.Fatalf("GetForQuestionnaire missing: err=%v got=%+v", err, none)
	}

	owned, err := repo.ListForQuestionnaires(dbc, []int{10, 20})
	if err != nil || len(owned) != 2 {
		t.Fatalf("ListForQuestionnaires: err=%v len=%d", err, len(owned))
	}

	targeting, err := repo.ListTargeting(dbc, 10, 1)
	if err != nil || len(targeting) != 2 {
		t.Fatalf("ListTargeting: err=%v len=%d", err, len(targeting))
	}
	if other, err := repo.ListTargeting(dbc, 10, 2); err != nil || len(other) != 0 {
		t.Fatalf("ListTargeting other version: err=%v len=%d", err, len(other))
	}
}

func TestAnswerOptionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewAnswerOptionRepo(db, testutil.Logger(t))

	testutil.SeedAnswerOption(t, ctx, tx, 100, types.AnswerTypeNumber)
	testutil.SeedAnswerOption(t, ctx, tx, 101, types.AnswerTypeText)

	got, err := repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: tx}, []int{100, 101, 102})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 || got[100].AnswerTypeID != types.AnswerTypeNumber {
		t.Fatalf("GetByIDs: got=%v", got)
	}
}
