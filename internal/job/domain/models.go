package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type UsageResult string

const (
	ResultSuccess  UsageResult = "success"
	ResultScrap    UsageResult = "scrap"
	ResultFailed   UsageResult = "failed"
	ResultReturned UsageResult = "returned"
)

type BillingStatus string

const (
	BillingNotBilled       BillingStatus = "not_billed"
	BillingPartiallyBilled BillingStatus = "partially_billed"
	BillingFullyBilled     BillingStatus = "fully_billed"
	BillingPaid            BillingStatus = "paid"
)

type ActivityType string

const (
	ActivityActivation    ActivityType = "activation"
	ActivityDeactivation  ActivityType = "deactivation"
	ActivityMaterialUsage ActivityType = "material_usage"
	ActivityMachineUsage  ActivityType = "machine_usage"
	ActivityStatusChange  ActivityType = "status_change"
)

// JobStatus is a mutable vocabulary rather than a fixed enum; the seed
// installs the defaults and workshops add their own.
type JobStatus struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null;uniqueIndex" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
	ColorCode   string       `gorm:"not null;default:'#cccccc'" json:"color_code"`
	SortOrder   int          `gorm:"not null;default:0" json:"sort_order"`
}

func (JobStatus) TableName() string { return "job_statuses" }

type Job struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	JobID              string        `gorm:"column:job_id;not null;uniqueIndex" json:"job_id"`
	ProjectName        string        `gorm:"not null" json:"project_name"`
	ClientID           *snowflake.ID `gorm:"index" json:"client_id,omitempty"`
	ContactPersonID    *snowflake.ID `json:"contact_person_id,omitempty"`
	Description        string        `gorm:"not null;default:''" json:"description,omitempty"`
	StatusID           snowflake.ID  `gorm:"not null" json:"status_id"`
	PercentComplete    int           `gorm:"not null;default:0" json:"percent_complete"`
	Priority           Priority      `gorm:"not null;default:'normal'" json:"priority"`
	StartDate          *time.Time    `gorm:"type:date" json:"start_date,omitempty"`
	EndDate            *time.Time    `gorm:"type:date" json:"end_date,omitempty"`
	Deadline           *time.Time    `gorm:"type:date" json:"deadline,omitempty"`
	ExpectedCompletion *time.Time    `gorm:"type:date" json:"expected_completion,omitempty"`
	IsPersonal         bool          `gorm:"not null;default:false" json:"is_personal"`
	IsGeneral          bool          `gorm:"not null;default:false" json:"is_general"`
	OwnerID            *snowflake.ID `json:"owner_id,omitempty"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

type JobMaterial struct {
	ID         snowflake.ID     `gorm:"primaryKey" json:"id"`
	JobID      snowflake.ID     `gorm:"column:job_id;not null;index" json:"job_id"`
	MaterialID snowflake.ID     `gorm:"column:material_id;not null" json:"material_id"`
	Quantity   decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price,omitempty"`
	DateUsed   time.Time        `gorm:"not null" json:"date_used"`
	AddedBy    string           `gorm:"not null;default:''" json:"added_by,omitempty"`
	Result     UsageResult      `gorm:"not null;default:'success'" json:"result"`
	Notes      string           `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt  time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JobMaterial) TableName() string { return "job_materials" }

// Cost reports the row's contribution to the job's material cost.
func (m JobMaterial) Cost() decimal.Decimal {
	if m.UnitPrice == nil {
		return decimal.Zero
	}
	return m.Quantity.Mul(*m.UnitPrice)
}

// JobMachine is a usage session. While is_active the end_time is unset and
// the operation cost keeps growing with the wall clock.
type JobMachine struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	JobID         snowflake.ID     `gorm:"column:job_id;not null;index" json:"job_id"`
	MachineID     snowflake.ID     `gorm:"column:machine_id;not null" json:"machine_id"`
	StartTime     time.Time        `gorm:"not null" json:"start_time"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
	SetupTime     int              `gorm:"not null;default:0" json:"setup_time"`
	OperationTime int              `gorm:"not null;default:0" json:"operation_time"`
	CleanupTime   int              `gorm:"not null;default:0" json:"cleanup_time"`
	HourlyRate    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"hourly_rate,omitempty"`
	SetupCost     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"setup_cost,omitempty"`
	OperationCost *decimal.Decimal `gorm:"type:decimal(10,2)" json:"operation_cost,omitempty"`
	CleanupCost   *decimal.Decimal `gorm:"type:decimal(10,2)" json:"cleanup_cost,omitempty"`
	TotalCost     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_cost,omitempty"`
	OperatorName  string           `gorm:"not null;default:''" json:"operator_name,omitempty"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	Notes         string           `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JobMachine) TableName() string { return "job_machines" }

type JobLabor struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	JobID       snowflake.ID    `gorm:"column:job_id;not null;index" json:"job_id"`
	OperatorID  snowflake.ID    `gorm:"column:operator_id;not null" json:"operator_id"`
	LaborType   string          `gorm:"not null" json:"labor_type"`
	HourlyRate  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"hourly_rate"`
	WorkDate    time.Time       `gorm:"type:date;not null" json:"work_date"`
	Hours       decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"hours"`
	Description string          `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JobLabor) TableName() string { return "job_labors" }

// Cost reports the row's contribution to the job's labor cost.
func (l JobLabor) Cost() decimal.Decimal {
	return l.Hours.Mul(l.HourlyRate)
}

// JobFinancial is the one-to-one rollup row. The cost columns are owned by
// the recompute; the billing columns are only touched by billing operations.
type JobFinancial struct {
	ID               snowflake.ID     `gorm:"primaryKey" json:"id"`
	JobID            snowflake.ID     `gorm:"column:job_id;not null;uniqueIndex" json:"job_id"`
	MaterialCost     decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"material_cost"`
	MachineCost      decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"machine_cost"`
	LaborCost        decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"labor_cost"`
	AdditionalCosts  decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"additional_costs"`
	TotalCost        decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"total_cost"`
	QuotedAmount     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"quoted_amount,omitempty"`
	BilledAmount     decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"billed_amount"`
	BillingStatus    BillingStatus    `gorm:"not null;default:'not_billed'" json:"billing_status"`
	InvoiceReference string           `gorm:"not null;default:''" json:"invoice_reference,omitempty"`
	LastUpdated      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_updated"`
}

func (JobFinancial) TableName() string { return "job_financials" }

// ProfitMargin is nil without a quote, 100 for a zero-cost quoted job, and
// (quoted - total) / quoted * 100 rounded to two decimals otherwise.
func (f JobFinancial) ProfitMargin() *decimal.Decimal {
	if f.QuotedAmount == nil || f.QuotedAmount.IsZero() {
		return nil
	}
	if f.TotalCost.IsZero() {
		hundred := decimal.NewFromInt(100)
		return &hundred
	}
	margin := f.QuotedAmount.Sub(f.TotalCost).
		Div(*f.QuotedAmount).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return &margin
}

// JobActivityLog is append-only: rows are written and read, never updated.
type JobActivityLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OperatorID   snowflake.ID      `gorm:"column:operator_id;not null;index" json:"operator_id"`
	JobID        snowflake.ID      `gorm:"column:job_id;not null;index" json:"job_id"`
	ActivityType ActivityType      `gorm:"not null" json:"activity_type"`
	Description  string            `gorm:"not null" json:"description"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JobActivityLog) TableName() string { return "job_activity_logs" }
