package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SweepStatusRunning   = "running"
	SweepStatusSucceeded = "succeeded"
	SweepStatusFailed    = "failed"

	SweepTriggerTemporal = "temporal"
	SweepTriggerTicker   = "ticker"
	SweepTriggerHTTP     = "http"
	SweepTriggerCLI      = "cli"
)

// SweepRun is the audit row of one lifecycle sweep execution.
type SweepRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger       string         `gorm:"column:trigger_source;not null;index" json:"trigger"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Scanned       int            `gorm:"column:scanned;not null;default:0" json:"scanned"`
	Activated     int            `gorm:"column:activated;not null;default:0" json:"activated"`
	Expired       int            `gorm:"column:expired;not null;default:0" json:"expired"`
	ReleasedTwice int            `gorm:"column:released_twice;not null;default:0" json:"released_twice"`
	Error         string         `gorm:"column:error" json:"error,omitempty"`
	Result        datatypes.JSON `gorm:"column:result" json:"result"`
	StartedAt     time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt    *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (SweepRun) TableName() string { return "instance_sweep_runs" }

func (r *SweepRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
