package participants

import "time"

const (
	RoleProband = "Proband"

	StatusActive      = "active"
	StatusDeactivated = "deactivated"
	StatusDeleted     = "deleted"
)

type Participant struct {
	Pseudonym         string     `gorm:"column:pseudonym;primaryKey" json:"pseudonym"`
	IDs               *string    `gorm:"column:ids;index" json:"ids"`
	Role              string     `gorm:"column:role;not null" json:"role"`
	Status            string     `gorm:"column:status;not null" json:"status"`
	FirstLoggedInAt   *time.Time `gorm:"column:first_logged_in_at" json:"first_logged_in_at"`
	ComplianceSamples bool       `gorm:"column:compliance_samples;not null" json:"compliance_samples"`
	IsTestProband     bool       `gorm:"column:is_test_proband;not null" json:"is_test_proband"`
	NotificationTime  *string    `gorm:"column:notification_time" json:"notification_time"`
	CreatedAt         time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Participant) TableName() string { return "participants" }

func (p *Participant) IsDeleted() bool     { return p.Status == StatusDeleted }
func (p *Participant) IsDeactivated() bool { return p.Status == StatusDeactivated }

// FollowUpKey is the identifier the follow-up system knows this participant by.
func (p *Participant) FollowUpKey() string {
	if p.IDs == nil {
		return ""
	}
	return *p.IDs
}

// StudyMembership links a participant (user_id = pseudonym) to a study.
type StudyMembership struct {
	StudyID     string `gorm:"column:study_id;primaryKey" json:"study_id"`
	UserID      string `gorm:"column:user_id;primaryKey;index" json:"user_id"`
	AccessLevel string `gorm:"column:access_level" json:"access_level"`
}

func (StudyMembership) TableName() string { return "study_users" }
