package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SkillLevel string

const (
	SkillApprentice   SkillLevel = "apprentice"
	SkillIntermediate SkillLevel = "intermediate"
	SkillExpert       SkillLevel = "expert"
)

type Operator struct {
	ID             snowflake.ID     `gorm:"primaryKey" json:"id"`
	OperatorID     string           `gorm:"column:operator_id;not null;uniqueIndex" json:"operator_id"`
	Username       string           `gorm:"not null;uniqueIndex" json:"username"`
	FullName       string           `gorm:"not null;default:''" json:"full_name"`
	Specialization string           `gorm:"not null;default:''" json:"specialization,omitempty"`
	SkillLevel     SkillLevel       `gorm:"not null;default:'intermediate'" json:"skill_level"`
	HourlyRate     *decimal.Decimal `gorm:"type:decimal(8,2)" json:"hourly_rate,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Operator) TableName() string { return "operators" }

// DisplayName is the name used on usage rows and activity logs.
func (o Operator) DisplayName() string {
	if o.FullName != "" {
		return o.FullName
	}
	return o.Username
}
