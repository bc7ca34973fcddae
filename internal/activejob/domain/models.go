package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// StaffSettings is the per-operator routing state: which job scans attribute
// to right now, and the operator's always-available personal job.
type StaffSettings struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	OperatorID    snowflake.ID  `gorm:"column:operator_id;not null;uniqueIndex" json:"operator_id"`
	ActiveJobID   *snowflake.ID `gorm:"column:active_job_id" json:"active_job_id,omitempty"`
	ActiveSince   *time.Time    `json:"active_since,omitempty"`
	PersonalJobID *snowflake.ID `gorm:"column:personal_job_id" json:"personal_job_id,omitempty"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (StaffSettings) TableName() string { return "staff_settings" }
