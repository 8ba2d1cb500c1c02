package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/testutil"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/cycle"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
)

var previewNow = time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)

func previewFixture(t *testing.T) (context.Context, repos.Set, *materializer.Materializer, func(q *types.Questionnaire, p *types.Participant)) {
	t.Helper()
	ctx := context.Background()
	db := testutil.Tx(t, testutil.DB(t))
	rs := repos.NewSet(db, testutil.Logger(t))
	mat := materializer.New(nil, materializer.Config{
		Location:                time.UTC,
		DefaultNotificationTime: cycle.ClockTime{Hour: 18},
		Now:                     func() time.Time { return previewNow },
	})
	seed := func(q *types.Questionnaire, p *types.Participant) {
		if q != nil {
			testutil.SeedQuestionnaire(t, ctx, db, q)
		}
		if p != nil {
			testutil.SeedParticipant(t, ctx, db, p, "S1")
		}
	}
	return ctx, rs, mat, seed
}

func TestBuildPreviewLatestVersion(t *testing.T) {
	ctx, rs, mat, seed := previewFixture(t)
	login := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	seed(testutil.Questionnaire(1, 1, "S1"), testutil.Proband("p1", &login))
	seed(testutil.Questionnaire(1, 2, "S1"), nil)

	p, err := BuildPreview(ctx, rs, mat, DatesOptions{QuestionnaireID: 1, Participant: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 2, p.QuestionnaireVersion)
	assert.Equal(t, types.CycleUnitOnce, p.CycleUnit)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, 1, p.Rows[0].Cycle)
	assert.True(t, p.Rows[0].DateOfIssue.Equal(time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)))

	var buf bytes.Buffer
	require.NoError(t, writePreview(&buf, p, time.UTC))
	assert.Contains(t, buf.String(), "2024-01-10 18:00 UTC")

	buf.Reset()
	require.NoError(t, writeJSON(&buf, p))
	var decoded Preview
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "p1", decoded.Participant)
	assert.Len(t, decoded.Rows, 1)
}

func TestBuildPreviewNotFound(t *testing.T) {
	ctx, rs, mat, seed := previewFixture(t)
	seed(testutil.Questionnaire(1, 1, "S1"), nil)

	_, err := BuildPreview(ctx, rs, mat, DatesOptions{QuestionnaireID: 9, Participant: "p1"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = BuildPreview(ctx, rs, mat, DatesOptions{QuestionnaireID: 1, Version: 1, Participant: "nobody"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestBuildPreviewWithoutLoginIsEmpty(t *testing.T) {
	ctx, rs, mat, seed := previewFixture(t)
	seed(testutil.Questionnaire(1, 1, "S1"), testutil.Proband("p1", nil))

	p, err := BuildPreview(ctx, rs, mat, DatesOptions{QuestionnaireID: 1, Participant: "p1"})
	require.NoError(t, err)
	assert.Empty(t, p.Rows)

	var buf bytes.Buffer
	require.NoError(t, writePreview(&buf, p, time.UTC))
	assert.Contains(t, buf.String(), "no instances")
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "dates", "--questionnaire", "1", "--participant", "p1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
