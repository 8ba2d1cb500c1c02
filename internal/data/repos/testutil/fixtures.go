package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
)

// Questionnaire returns an active, published, once-only proband
// questionnaire that callers adjust before seeding.
func Questionnaire(id, version int, studyID string) *types.Questionnaire {
	return &types.Questionnaire{
		ID:               id,
		Version:          version,
		StudyID:          studyID,
		Name:             "Questionnaire",
		CycleUnit:        types.CycleUnitOnce,
		ExpiresAfterDays: 14,
		Publish:          types.PublishAll,
		Type:             types.TypeForProbands,
		Active:           true,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Proband returns an active participant.
func Proband(pseudonym string, firstLogin *time.Time) *types.Participant {
	return &types.Participant{
		Pseudonym:         pseudonym,
		Role:              types.RoleProband,
		Status:            types.ParticipantActive,
		FirstLoggedInAt:   firstLogin,
		ComplianceSamples: true,
	}
}

func SeedQuestionnaire(tb testing.TB, ctx context.Context, tx *gorm.DB, q *types.Questionnaire) *types.Questionnaire {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed questionnaire: %v", err)
	}
	return q
}

// SeedParticipant stores p and enrolls it in the given studies.
func SeedParticipant(tb testing.TB, ctx context.Context, tx *gorm.DB, p *types.Participant, studyIDs ...string) *types.Participant {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed participant: %v", err)
	}
	for _, studyID := range studyIDs {
		m := &types.StudyMembership{StudyID: studyID, UserID: p.Pseudonym, AccessLevel: "read"}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			tb.Fatalf("seed study membership: %v", err)
		}
	}
	return p
}

func SeedCondition(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Condition) *types.Condition {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed condition: %v", err)
	}
	return c
}

func SeedAnswerOption(tb testing.TB, ctx context.Context, tx *gorm.DB, id, answerTypeID int) *types.AnswerOption {
	tb.Helper()
	ao := &types.AnswerOption{ID: id, QuestionID: id * 10, AnswerTypeID: answerTypeID}
	if err := tx.WithContext(ctx).Create(ao).Error; err != nil {
		tb.Fatalf("seed answer option: %v", err)
	}
	return ao
}

// SeedInstance stores an instance of q for userID.
func SeedInstance(tb testing.TB, ctx context.Context, tx *gorm.DB, q *types.Questionnaire, userID string, cycle int, status string, issued time.Time) *types.QuestionnaireInstance {
	tb.Helper()
	qi := &types.QuestionnaireInstance{
		ID:                   uuid.New(),
		StudyID:              q.StudyID,
		QuestionnaireID:      q.ID,
		QuestionnaireVersion: q.Version,
		QuestionnaireName:    q.Name,
		UserID:               userID,
		DateOfIssue:          issued,
		Cycle:                cycle,
		Status:               status,
	}
	if err := tx.WithContext(ctx).Create(qi).Error; err != nil {
		tb.Fatalf("seed instance: %v", err)
	}
	return qi
}

func SeedAnswer(tb testing.TB, ctx context.Context, tx *gorm.DB, instanceID uuid.UUID, answerOptionID, versioning int, value string) *types.Answer {
	tb.Helper()
	a := &types.Answer{
		QuestionnaireInstanceID: instanceID,
		QuestionID:              answerOptionID * 10,
		AnswerOptionID:          answerOptionID,
		Versioning:              versioning,
		Value:                   value,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed answer: %v", err)
	}
	return a
}

func SeedQueued(tb testing.TB, ctx context.Context, tx *gorm.DB, qi *types.QuestionnaireInstance, at time.Time) *types.QueuedInstance {
	tb.Helper()
	row := &types.QueuedInstance{UserID: qi.UserID, QuestionnaireInstanceID: qi.ID, DateOfQueue: at}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed queued instance: %v", err)
	}
	return row
}

func SeedReminder(tb testing.TB, ctx context.Context, tx *gorm.DB, qi *types.QuestionnaireInstance, at time.Time) *types.NotificationSchedule {
	tb.Helper()
	row := &types.NotificationSchedule{
		UserID:           qi.UserID,
		NotificationType: types.NotificationTypeReminder,
		ReferenceID:      qi.ID.String(),
		SendingDate:      at,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed reminder: %v", err)
	}
	return row
}

func Ptr[T any](v T) *T { return &v }
