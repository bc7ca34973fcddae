package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activejobdomain "github.com/makerbench/makerbench/internal/activejob/domain"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/job/costing"
	"github.com/makerbench/makerbench/internal/job/domain"
	jobrepository "github.com/makerbench/makerbench/internal/job/repository"
	machinedomain "github.com/makerbench/makerbench/internal/machine/domain"
	machinerepository "github.com/makerbench/makerbench/internal/machine/repository"
	machineservice "github.com/makerbench/makerbench/internal/machine/service"
	materialdomain "github.com/makerbench/makerbench/internal/material/domain"
	materialrepository "github.com/makerbench/makerbench/internal/material/repository"
	materialservice "github.com/makerbench/makerbench/internal/material/service"
	operatordomain "github.com/makerbench/makerbench/internal/operator/domain"
	operatorrepository "github.com/makerbench/makerbench/internal/operator/repository"
	operatorservice "github.com/makerbench/makerbench/internal/operator/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stack struct {
	jobs      domain.Service
	costing   costing.Service
	materials materialdomain.Service
	machines  machinedomain.Service
	operators operatordomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
}

func newStack(t *testing.T) *stack {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:jobsvc_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&operatordomain.Operator{},
		&materialdomain.MaterialCategory{},
		&materialdomain.MaterialType{},
		&materialdomain.Material{},
		&materialdomain.MaterialEntry{},
		&materialdomain.MaterialTransaction{},
		&machinedomain.MachineType{},
		&machinedomain.Machine{},
		&domain.JobStatus{},
		&domain.Job{},
		&domain.JobMaterial{},
		&domain.JobMachine{},
		&domain.JobLabor{},
		&domain.JobFinancial{},
		&domain.JobActivityLog{},
		&activejobdomain.StaffSettings{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	cfg := config.Config{
		IdentifierRetries:     3,
		DefaultLaborRate:      decimal.NewFromInt(50),
		CostReturnedMaterials: true,
	}
	log := zap.NewNop()
	alloc := identifier.New(identifier.Params{Log: log})
	jobRepo := jobrepository.Provide()

	operators := operatorservice.New(operatorservice.Params{
		Config: cfg, DB: conn, Log: log, GenID: node,
		Alloc: alloc, Repo: operatorrepository.Provide(),
	})
	materials := materialservice.New(materialservice.Params{
		Config: cfg, DB: conn, Log: log, GenID: node, Clock: fake,
		Alloc: alloc, Repo: materialrepository.Provide(),
	})
	machines := machineservice.New(machineservice.Params{
		Config: cfg, DB: conn, Log: log, GenID: node, Clock: fake,
		Alloc: alloc, Repo: machinerepository.Provide(),
	})
	rollup := costing.New(costing.Params{
		Config: cfg, DB: conn, Log: log, GenID: node, Clock: fake, Repo: jobRepo,
	})
	jobs := New(Params{
		Config: cfg, DB: conn, Log: log, GenID: node, Clock: fake,
		Alloc: alloc, Repo: jobRepo, Costing: rollup,
		Material: materials, Machine: machines, Operator: operators,
	})

	s := &stack{
		jobs: jobs, costing: rollup, materials: materials,
		machines: machines, operators: operators,
		db: conn, node: node, clock: fake,
	}

	_, err = jobs.CreateStatus(context.Background(), domain.CreateStatusRequest{Name: "New", SortOrder: 1})
	require.NoError(t, err)
	_, err = jobs.CreateStatus(context.Background(), domain.CreateStatusRequest{Name: "In Progress", SortOrder: 2})
	require.NoError(t, err)
	return s
}

func (s *stack) createJob(t *testing.T) domain.Job {
	t.Helper()
	job, err := s.jobs.Create(context.Background(), domain.CreateJobRequest{
		ProjectName: "Bracket run",
	})
	require.NoError(t, err)
	return job
}

func (s *stack) createStockedMaterial(t *testing.T, qty, price string) materialdomain.Material {
	t.Helper()
	ctx := context.Background()

	category, err := s.materials.CreateCategory(ctx, materialdomain.CreateCategoryRequest{Code: "PRT", Name: "Printing"})
	require.NoError(t, err)
	materialType, err := s.materials.CreateType(ctx, materialdomain.CreateTypeRequest{
		CategoryID: category.ID.String(), Code: "PLA", Name: "PLA filament",
	})
	require.NoError(t, err)
	material, err := s.materials.Create(ctx, materialdomain.CreateMaterialRequest{
		Name: "PLA white", MaterialTypeID: materialType.ID.String(), UnitOfMeasurement: "kg",
	})
	require.NoError(t, err)
	_, err = s.materials.RecordEntry(ctx, materialdomain.RecordEntryRequest{
		MaterialID:   material.ID.String(),
		Quantity:     decimal.RequireFromString(qty),
		PricePerUnit: decimal.RequireFromString(price),
	})
	require.NoError(t, err)

	material, err = s.materials.GetByID(ctx, material.ID.String())
	require.NoError(t, err)
	return material
}

func (s *stack) createMachine(t *testing.T, hourly string) machinedomain.Machine {
	t.Helper()
	ctx := context.Background()

	machineType, err := s.machines.CreateType(ctx, machinedomain.CreateTypeRequest{Code: "FDM", Name: "FDM printer"})
	require.NoError(t, err)
	rate := decimal.RequireFromString(hourly)
	machine, err := s.machines.Create(ctx, machinedomain.CreateMachineRequest{
		Name: "Prusa MK4", MachineTypeID: machineType.ID.String(), HourlyRate: &rate,
	})
	require.NoError(t, err)
	return machine
}

func TestCreateAllocatesYearScopedIdentifier(t *testing.T) {
	s := newStack(t)

	first := s.createJob(t)
	assert.Equal(t, "JOB-2025-0001", first.JobID)

	second := s.createJob(t)
	assert.Equal(t, "JOB-2025-0002", second.JobID)
}

func TestCreateWithExplicitIdentifier(t *testing.T) {
	s := newStack(t)

	job, err := s.jobs.Create(context.Background(), domain.CreateJobRequest{
		ProjectName: "Personal - alice",
		JobID:       "PERS-ALIC-2025",
		IsPersonal:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "PERS-ALIC-2025", job.JobID)
	assert.True(t, job.IsPersonal)

	_, err = s.jobs.Create(context.Background(), domain.CreateJobRequest{
		ProjectName: "Personal - alice again",
		JobID:       "PERS-ALIC-2025",
	})
	assert.ErrorIs(t, err, identifier.ErrIdentifierConflict)
}

func TestAddMaterialConsumesStockAndRollsUp(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)
	material := s.createStockedMaterial(t, "20", "3.00")

	usage, err := s.jobs.AddMaterial(context.Background(), domain.AddMaterialRequest{
		JobID:      job.ID.String(),
		MaterialID: material.ID.String(),
		Quantity:   decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	require.NotNil(t, usage.UnitPrice)
	assert.True(t, usage.UnitPrice.Equal(decimal.RequireFromString("3.00")))

	restocked, err := s.materials.GetByID(context.Background(), material.ID.String())
	require.NoError(t, err)
	assert.True(t, restocked.CurrentStock.Equal(decimal.NewFromInt(15)), "stock %s", restocked.CurrentStock)

	financial, err := s.costing.Financial(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, financial.MaterialCost.Equal(decimal.RequireFromString("15.00")), "material %s", financial.MaterialCost)
}

func TestAddMaterialInsufficientStockLeavesNoUsageRow(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)
	material := s.createStockedMaterial(t, "20", "3.00")

	_, err := s.jobs.AddMaterial(context.Background(), domain.AddMaterialRequest{
		JobID:      job.ID.String(),
		MaterialID: material.ID.String(),
		Quantity:   decimal.RequireFromString("25"),
	})
	assert.ErrorIs(t, err, materialdomain.ErrInsufficientStock)

	usages, err := s.jobs.Materials(context.Background(), job.ID.String())
	require.NoError(t, err)
	assert.Empty(t, usages)
}

func TestReturnMaterial(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)
	material := s.createStockedMaterial(t, "20", "3.00")

	usage, err := s.jobs.AddMaterial(context.Background(), domain.AddMaterialRequest{
		JobID:      job.ID.String(),
		MaterialID: material.ID.String(),
		Quantity:   decimal.RequireFromString("8"),
	})
	require.NoError(t, err)

	returned, err := s.jobs.ReturnMaterial(context.Background(), domain.ReturnMaterialRequest{
		UsageID:  usage.ID.String(),
		Quantity: decimal.RequireFromString("8"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultReturned, returned.Result)
	assert.True(t, returned.Quantity.IsZero())

	restocked, err := s.materials.GetByID(context.Background(), material.ID.String())
	require.NoError(t, err)
	assert.True(t, restocked.CurrentStock.Equal(decimal.NewFromInt(20)), "stock %s", restocked.CurrentStock)

	_, err = s.jobs.ReturnMaterial(context.Background(), domain.ReturnMaterialRequest{
		UsageID:  usage.ID.String(),
		Quantity: decimal.RequireFromString("1"),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
}

func TestMachineUsageSession(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)
	machine := s.createMachine(t, "60.00")

	usage, err := s.jobs.StartUsage(context.Background(), domain.StartUsageRequest{
		JobID:     job.ID.String(),
		MachineID: machine.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, usage.IsActive)

	s.clock.Advance(90 * time.Minute)
	ended, err := s.jobs.EndUsage(context.Background(), domain.EndUsageRequest{
		UsageID: usage.ID.String(),
	})
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, 90, ended.OperationTime)
	require.NotNil(t, ended.TotalCost)
	assert.True(t, ended.TotalCost.Equal(decimal.RequireFromString("90.00")), "total %s", ended.TotalCost)

	_, err = s.jobs.EndUsage(context.Background(), domain.EndUsageRequest{
		UsageID: usage.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestAddLaborDefaultsRateFromProfile(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)

	rate := decimal.RequireFromString("72.00")
	_, err := s.operators.Create(context.Background(), operatordomain.CreateOperatorRequest{
		Username:   "alice",
		HourlyRate: &rate,
	})
	require.NoError(t, err)
	_, err = s.operators.Create(context.Background(), operatordomain.CreateOperatorRequest{
		Username: "bob",
	})
	require.NoError(t, err)

	labor, err := s.jobs.AddLabor(context.Background(), domain.AddLaborRequest{
		JobID:     job.ID.String(),
		Username:  "alice",
		LaborType: "assembly",
		Hours:     decimal.RequireFromString("2"),
	})
	require.NoError(t, err)
	assert.True(t, labor.HourlyRate.Equal(rate))

	fallback, err := s.jobs.AddLabor(context.Background(), domain.AddLaborRequest{
		JobID:     job.ID.String(),
		Username:  "bob",
		LaborType: "finishing",
		Hours:     decimal.RequireFromString("1"),
	})
	require.NoError(t, err)
	assert.True(t, fallback.HourlyRate.Equal(decimal.NewFromInt(50)))

	financial, err := s.costing.Financial(context.Background(), job.ID)
	require.NoError(t, err)
	assert.True(t, financial.LaborCost.Equal(decimal.RequireFromString("194.00")), "labor %s", financial.LaborCost)
}

func TestStatusChangeIsLogged(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)

	_, err := s.operators.Create(context.Background(), operatordomain.CreateOperatorRequest{Username: "alice"})
	require.NoError(t, err)

	_, err = s.jobs.SetStatus(context.Background(), job.ID.String(), "In Progress", "alice")
	require.NoError(t, err)

	logs, err := s.jobs.ActivityLogs(context.Background(), job.ID.String())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActivityStatusChange, logs[0].ActivityType)
	assert.Equal(t, "In Progress", logs[0].Metadata["to"])
}

func TestDeleteRefusedWhileRouted(t *testing.T) {
	s := newStack(t)
	job := s.createJob(t)

	operator, err := s.operators.Create(context.Background(), operatordomain.CreateOperatorRequest{Username: "alice"})
	require.NoError(t, err)

	settings := activejobdomain.StaffSettings{
		ID:          s.node.Generate(),
		OperatorID:  operator.ID,
		ActiveJobID: &job.ID,
	}
	require.NoError(t, s.db.Create(&settings).Error)

	err = s.jobs.Delete(context.Background(), job.ID.String())
	assert.ErrorIs(t, err, domain.ErrJobInUse)

	require.NoError(t, s.db.Model(&activejobdomain.StaffSettings{}).
		Where("id = ?", settings.ID).
		Update("active_job_id", nil).Error)

	require.NoError(t, s.jobs.Delete(context.Background(), job.ID.String()))
	_, err = s.jobs.GetByID(context.Background(), job.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
