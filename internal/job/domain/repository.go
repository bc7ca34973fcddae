package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertStatus(ctx context.Context, db *gorm.DB, status *JobStatus) error
	FindStatusByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobStatus, error)
	FindStatusByName(ctx context.Context, db *gorm.DB, name string) (*JobStatus, error)
	ListStatuses(ctx context.Context, db *gorm.DB) ([]*JobStatus, error)

	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	FindByJobID(ctx context.Context, db *gorm.DB, jobID string) (*Job, error)
	List(ctx context.Context, db *gorm.DB, filter ListJobFilter) ([]*Job, error)
	Update(ctx context.Context, db *gorm.DB, job *Job) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertMaterial(ctx context.Context, db *gorm.DB, usage *JobMaterial) error
	FindMaterialByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobMaterial, error)
	ListMaterials(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*JobMaterial, error)
	UpdateMaterial(ctx context.Context, db *gorm.DB, usage *JobMaterial) error
	DeleteMaterial(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertMachine(ctx context.Context, db *gorm.DB, usage *JobMachine) error
	FindMachineUsageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobMachine, error)
	FindActiveMachineUsage(ctx context.Context, db *gorm.DB, jobID, machineID snowflake.ID) (*JobMachine, error)
	ListMachines(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*JobMachine, error)
	ListAllMachineUsages(ctx context.Context, db *gorm.DB) ([]*JobMachine, error)
	UpdateMachine(ctx context.Context, db *gorm.DB, usage *JobMachine) error
	DeleteMachine(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertLabor(ctx context.Context, db *gorm.DB, labor *JobLabor) error
	FindLaborByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobLabor, error)
	ListLabors(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*JobLabor, error)
	DeleteLabor(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindFinancial(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*JobFinancial, error)
	InsertFinancial(ctx context.Context, db *gorm.DB, financial *JobFinancial) error
	UpdateFinancial(ctx context.Context, db *gorm.DB, financial *JobFinancial) error

	InsertActivityLog(ctx context.Context, db *gorm.DB, entry *JobActivityLog) error
	ListActivityLogs(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*JobActivityLog, error)

	// CountStaffReferences reports how many staff settings rows point at the
	// job as their active or personal job.
	CountStaffReferences(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (int64, error)
}
