package instances

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusInactive      = "inactive"
	StatusActive        = "active"
	StatusInProgress    = "in_progress"
	StatusReleasedOnce  = "released_once"
	StatusReleasedTwice = "released_twice"
	StatusReleased      = "released"
	StatusExpired       = "expired"

	NotificationTypeReminder = "qReminder"
)

// QuestionnaireInstance is one scheduled occurrence of a questionnaire
// version for one participant. (questionnaire_id, questionnaire_version,
// user_id, cycle) is unique.
type QuestionnaireInstance struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudyID              string     `gorm:"column:study_id;not null;index" json:"study_id"`
	QuestionnaireID      int        `gorm:"column:questionnaire_id;not null;uniqueIndex:idx_questionnaire_instance_identity,priority:1" json:"questionnaire_id"`
	QuestionnaireVersion int        `gorm:"column:questionnaire_version;not null;uniqueIndex:idx_questionnaire_instance_identity,priority:2" json:"questionnaire_version"`
	QuestionnaireName    string     `gorm:"column:questionnaire_name;not null" json:"questionnaire_name"`
	UserID               string     `gorm:"column:user_id;not null;index;uniqueIndex:idx_questionnaire_instance_identity,priority:3" json:"user_id"`
	DateOfIssue          time.Time  `gorm:"column:date_of_issue;not null" json:"date_of_issue"`
	DateOfReleaseV1      *time.Time `gorm:"column:date_of_release_v1" json:"date_of_release_v1"`
	DateOfReleaseV2      *time.Time `gorm:"column:date_of_release_v2" json:"date_of_release_v2"`
	Cycle                int        `gorm:"column:cycle;not null;uniqueIndex:idx_questionnaire_instance_identity,priority:4" json:"cycle"`
	Status               string     `gorm:"column:status;not null;index" json:"status"`
	ReleaseVersion       int        `gorm:"column:release_version;not null;default:0" json:"release_version"`
	CreatedAt            time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (QuestionnaireInstance) TableName() string { return "questionnaire_instances" }

func (qi *QuestionnaireInstance) BeforeCreate(tx *gorm.DB) error {
	if qi.ID == uuid.Nil {
		qi.ID = uuid.New()
	}
	return nil
}

// IdentityKey is the composite identity of an instance.
type IdentityKey struct {
	QuestionnaireID      int
	QuestionnaireVersion int
	UserID               string
	Cycle                int
}

func (qi *QuestionnaireInstance) Key() IdentityKey {
	return IdentityKey{
		QuestionnaireID:      qi.QuestionnaireID,
		QuestionnaireVersion: qi.QuestionnaireVersion,
		UserID:               qi.UserID,
		Cycle:                qi.Cycle,
	}
}

// Answer is immutable once written, except for the v1 to v2 copy made when an
// instance becomes released_twice.
type Answer struct {
	QuestionnaireInstanceID uuid.UUID  `gorm:"type:uuid;column:questionnaire_instance_id;primaryKey" json:"questionnaire_instance_id"`
	QuestionID              int        `gorm:"column:question_id;primaryKey;autoIncrement:false" json:"question_id"`
	AnswerOptionID          int        `gorm:"column:answer_option_id;primaryKey;autoIncrement:false" json:"answer_option_id"`
	Versioning              int        `gorm:"column:versioning;primaryKey;autoIncrement:false" json:"versioning"`
	Value                   string     `gorm:"column:value;not null" json:"value"`
	DateOfRelease           *time.Time `gorm:"column:date_of_release" json:"date_of_release"`
}

func (Answer) TableName() string { return "answers" }

// QueuedInstance tells the delivery side when to surface a newly unlocked
// instance to the participant.
type QueuedInstance struct {
	UserID                  string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	QuestionnaireInstanceID uuid.UUID `gorm:"type:uuid;column:questionnaire_instance_id;primaryKey" json:"questionnaire_instance_id"`
	DateOfQueue             time.Time `gorm:"column:date_of_queue;not null" json:"date_of_queue"`
}

func (QueuedInstance) TableName() string { return "questionnaire_instances_queued" }

type NotificationSchedule struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"column:user_id;not null;index" json:"user_id"`
	NotificationType string    `gorm:"column:notification_type;not null;index:idx_notification_reference,priority:1" json:"notification_type"`
	ReferenceID      string    `gorm:"column:reference_id;not null;index:idx_notification_reference,priority:2" json:"reference_id"`
	SendingDate      time.Time `gorm:"column:sending_date;not null" json:"sending_date"`
}

func (NotificationSchedule) TableName() string { return "notification_schedules" }

func (n *NotificationSchedule) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
