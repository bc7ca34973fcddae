package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateStatusRequest struct {
	Name        string
	Description string
	ColorCode   string
	SortOrder   int
}

type CreateJobRequest struct {
	ProjectName string
	ClientID    string
	Description string
	StatusName  string
	Priority    Priority
	Deadline    *time.Time

	// JobID, when set, skips sequential allocation and uses the given
	// identifier verbatim. Personal jobs use their fixed derived ID.
	JobID      string
	IsPersonal bool
	IsGeneral  bool
	OwnerID    *snowflake.ID
}

type ListJobRequest struct {
	StatusName string
	ClientID   string
	Priority   Priority
}

type ListJobFilter struct {
	StatusID snowflake.ID
	ClientID snowflake.ID
	Priority Priority
}

type AddMaterialRequest struct {
	JobID      string
	MaterialID string
	Quantity   decimal.Decimal
	UnitPrice  *decimal.Decimal
	AddedBy    string
	Result     UsageResult
	Notes      string
}

type ReturnMaterialRequest struct {
	UsageID  string
	Quantity decimal.Decimal
	Operator string
}

type StartUsageRequest struct {
	JobID        string
	MachineID    string
	OperatorName string
	Notes        string
}

type EndUsageRequest struct {
	UsageID     string
	SetupTime   *int
	CleanupTime *int
	Notes       string
}

type AddLaborRequest struct {
	JobID       string
	Username    string
	LaborType   string
	Hours       decimal.Decimal
	HourlyRate  *decimal.Decimal
	WorkDate    time.Time
	Description string
}

type Service interface {
	CreateStatus(context.Context, CreateStatusRequest) (JobStatus, error)
	Statuses(context.Context) ([]JobStatus, error)

	Create(context.Context, CreateJobRequest) (Job, error)
	GetByID(ctx context.Context, id string) (Job, error)
	GetByJobID(ctx context.Context, jobID string) (Job, error)
	List(context.Context, ListJobRequest) ([]Job, error)
	SetStatus(ctx context.Context, id, statusName, changedBy string) (Job, error)
	SetPercentComplete(ctx context.Context, id string, percent int) (Job, error)
	Delete(ctx context.Context, id string) error

	AddMaterial(context.Context, AddMaterialRequest) (JobMaterial, error)
	ReturnMaterial(context.Context, ReturnMaterialRequest) (JobMaterial, error)
	Materials(ctx context.Context, jobID string) ([]JobMaterial, error)
	DeleteMaterial(ctx context.Context, usageID string) error

	StartUsage(context.Context, StartUsageRequest) (JobMachine, error)
	EndUsage(context.Context, EndUsageRequest) (JobMachine, error)
	ActiveUsage(ctx context.Context, jobID, machineID string) (JobMachine, error)
	MachineUsages(ctx context.Context, jobID string) ([]JobMachine, error)

	AddLabor(context.Context, AddLaborRequest) (JobLabor, error)
	Labors(ctx context.Context, jobID string) ([]JobLabor, error)
	DeleteLabor(ctx context.Context, laborID string) error

	LogActivity(ctx context.Context, entry JobActivityLog) error
	ActivityLogs(ctx context.Context, jobID string) ([]JobActivityLog, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidPriority = errors.New("invalid_priority")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPercent  = errors.New("invalid_percent")
	ErrInvalidResult   = errors.New("invalid_result")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrJobInUse        = errors.New("job_in_use")
	ErrSessionEnded    = errors.New("session_ended")
	ErrAlreadyReturned = errors.New("already_returned")
)
