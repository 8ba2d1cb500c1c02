package studies

import (
	"strings"
	"time"
)

const (
	CycleUnitOnce    = "once"
	CycleUnitDate    = "date"
	CycleUnitSpontan = "spontan"
	CycleUnitHour    = "hour"
	CycleUnitDay     = "day"
	CycleUnitWeek    = "week"
	CycleUnitMonth   = "month"

	PublishAll          = "all"
	PublishHidden       = "hidden"
	PublishTestProbands = "testprobands"

	TypeForProbands     = "for_probands"
	TypeForResearchTeam = "for_research_team"

	// HoursPerDay is the per-day quota assumed when cycle_per_day is unset.
	HoursPerDay = 24
)

// Questionnaire is one published version of a questionnaire definition.
// Versions are immutable; only the highest version per ID spawns new instances.
type Questionnaire struct {
	ID                  int        `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Version             int        `gorm:"column:version;primaryKey;autoIncrement:false" json:"version"`
	StudyID             string     `gorm:"column:study_id;not null;index" json:"study_id"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	CycleUnit           string     `gorm:"column:cycle_unit;not null" json:"cycle_unit"`
	CycleAmount         int        `gorm:"column:cycle_amount;not null;default:0" json:"cycle_amount"`
	CyclePerDay         *int       `gorm:"column:cycle_per_day" json:"cycle_per_day"`
	CycleFirstHour      *int       `gorm:"column:cycle_first_hour" json:"cycle_first_hour"`
	NotificationWeekday *string    `gorm:"column:notification_weekday" json:"notification_weekday"`
	ActivateAfterDays   int        `gorm:"column:activate_after_days;not null;default:0" json:"activate_after_days"`
	DeactivateAfterDays int        `gorm:"column:deactivate_after_days;not null;default:0" json:"deactivate_after_days"`
	ExpiresAfterDays    int        `gorm:"column:expires_after_days;not null;default:0" json:"expires_after_days"`
	FinalisesAfterDays  int        `gorm:"column:finalises_after_days;not null;default:0" json:"finalises_after_days"`
	ActivateAtDate      *time.Time `gorm:"column:activate_at_date" json:"activate_at_date"`
	Publish             string     `gorm:"column:publish;not null" json:"publish"`
	Type                string     `gorm:"column:type;not null" json:"type"`
	ComplianceNeeded    bool       `gorm:"column:compliance_needed;not null" json:"compliance_needed"`
	Active              bool       `gorm:"column:active;not null" json:"active"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Questionnaire) TableName() string { return "questionnaires" }

func (q *Questionnaire) IsHidden() bool { return q.Publish == PublishHidden }

func (q *Questionnaire) PerDay() int {
	if q.CyclePerDay == nil {
		return HoursPerDay
	}
	return *q.CyclePerDay
}

func (q *Questionnaire) FirstHour() int {
	if q.CycleFirstHour == nil {
		return 0
	}
	return *q.CycleFirstHour
}

func (q *Questionnaire) Weekday() string {
	if q.NotificationWeekday == nil {
		return ""
	}
	return strings.TrimSpace(*q.NotificationWeekday)
}
