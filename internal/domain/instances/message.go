package instances

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageCreated   = "questionnaire_instance.created"
	MessageActivated = "questionnaire_instance.activated"
	MessageExpired   = "questionnaire_instance.expired"
)

// LifecycleMessage announces an instance entering a new lifecycle state.
type LifecycleMessage struct {
	Type                 string    `json:"type"`
	InstanceID           uuid.UUID `json:"instance_id"`
	UserID               string    `json:"user_id"`
	StudyID              string    `json:"study_id"`
	QuestionnaireID      int       `json:"questionnaire_id"`
	QuestionnaireVersion int       `json:"questionnaire_version"`
	Status               string    `json:"status"`
	DateOfIssue          time.Time `json:"date_of_issue"`
}

func NewLifecycleMessage(kind string, qi *QuestionnaireInstance) LifecycleMessage {
	return LifecycleMessage{
		Type:                 kind,
		InstanceID:           qi.ID,
		UserID:               qi.UserID,
		StudyID:              qi.StudyID,
		QuestionnaireID:      qi.QuestionnaireID,
		QuestionnaireVersion: qi.QuestionnaireVersion,
		Status:               qi.Status,
		DateOfIssue:          qi.DateOfIssue,
	}
}
