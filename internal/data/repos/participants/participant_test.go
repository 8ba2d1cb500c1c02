package participants

import (
	"context"
	"testing"
	"time"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/testutil"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
)

func TestParticipantRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewParticipantRepo(db, testutil.Logger(t))

	login := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	testutil.SeedParticipant(t, ctx, tx, testutil.Proband("p-active", &login), "S1", "S2")
	deactivated := testutil.Proband("p-deactivated", nil)
	deactivated.Status = types.ParticipantDeactivated
	testutil.SeedParticipant(t, ctx, tx, deactivated, "S1")
	deleted := testutil.Proband("p-deleted", nil)
	deleted.Status = types.ParticipantDeleted
	testutil.SeedParticipant(t, ctx, tx, deleted, "S1")
	researcher := testutil.Proband("forscher", nil)
	researcher.Role = "Forscher"
	testutil.SeedParticipant(t, ctx, tx, researcher, "S1")

	got, err := repo.Get(dbc, "p-active")
	if err != nil || got == nil || got.FirstLoggedInAt == nil {
		t.Fatalf("Get: err=%v got=%+v", err, got)
	}
	if missing, err := repo.Get(dbc, "nobody"); err != nil || missing != nil {
		t.Fatalf("Get missing: err=%v got=%+v", err, missing)
	}

	probands, err := repo.ListProbands(dbc, ProbandQuery{StudyID: "S1"})
	if err != nil {
		t.Fatalf("ListProbands: %v", err)
	}
	if len(probands) != 2 || probands[0].Pseudonym != "p-active" || probands[1].Pseudonym != "p-deactivated" {
		t.Fatalf("ListProbands: got=%+v", probands)
	}

	q := testutil.SeedQuestionnaire(t, ctx, tx, testutil.Questionnaire(5, 1, "S1"))
	testutil.SeedInstance(t, ctx, tx, q, "p-active", 1, types.InstanceActive, login)
	qid := 5
	remaining, err := repo.ListProbands(dbc, ProbandQuery{StudyID: "S1", ExcludeOwnersOf: &qid})
	if err != nil {
		t.Fatalf("ListProbands exclude: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Pseudonym != "p-deactivated" {
		t.Fatalf("ListProbands exclude: got=%+v", remaining)
	}

	studies, err := repo.ListStudyIDs(dbc, "p-active")
	if err != nil {
		t.Fatalf("ListStudyIDs: %v", err)
	}
	if len(studies) != 2 || studies[0] != "S1" || studies[1] != "S2" {
		t.Fatalf("ListStudyIDs: want=[S1 S2] got=%v", studies)
	}
}
