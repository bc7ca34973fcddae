package scan

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activejobdomain "github.com/makerbench/makerbench/internal/activejob/domain"
	activejobrepository "github.com/makerbench/makerbench/internal/activejob/repository"
	activejobservice "github.com/makerbench/makerbench/internal/activejob/service"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/job/costing"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	jobrepository "github.com/makerbench/makerbench/internal/job/repository"
	jobservice "github.com/makerbench/makerbench/internal/job/service"
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

type floor struct {
	svc       Service
	jobs      jobdomain.Service
	materials materialdomain.Service
	machines  machinedomain.Service
	activeJob activejobdomain.Service
	clock     *clock.FakeClock
	db        *gorm.DB
}

func newFloor(t *testing.T) *floor {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:scan_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
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
		&jobdomain.JobStatus{},
		&jobdomain.Job{},
		&jobdomain.JobMaterial{},
		&jobdomain.JobMachine{},
		&jobdomain.JobLabor{},
		&jobdomain.JobFinancial{},
		&jobdomain.JobActivityLog{},
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
	jobs := jobservice.New(jobservice.Params{
		Config: cfg, DB: conn, Log: log, GenID: node, Clock: fake,
		Alloc: alloc, Repo: jobRepo, Costing: rollup,
		Material: materials, Machine: machines, Operator: operators,
	})
	activeJob := activejobservice.New(activejobservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake,
		Repo: activejobrepository.Provide(), Jobs: jobs, Operator: operators,
	})
	svc := New(Params{
		Log: log, Jobs: jobs, Materials: materials,
		Machines: machines, ActiveJob: activeJob,
	})

	ctx := context.Background()
	_, err = jobs.CreateStatus(ctx, jobdomain.CreateStatusRequest{Name: "New", SortOrder: 1})
	require.NoError(t, err)
	_, err = operators.Create(ctx, operatordomain.CreateOperatorRequest{Username: "alice"})
	require.NoError(t, err)

	return &floor{
		svc: svc, jobs: jobs, materials: materials, machines: machines,
		activeJob: activeJob, clock: fake, db: conn,
	}
}

func (f *floor) addMaterial(t *testing.T, serial string, qty, price string) materialdomain.Material {
	t.Helper()
	ctx := context.Background()
	category, err := f.materials.CreateCategory(ctx, materialdomain.CreateCategoryRequest{
		Code: "PRT", Name: "Printing",
	})
	require.NoError(t, err)
	typ, err := f.materials.CreateType(ctx, materialdomain.CreateTypeRequest{
		CategoryID: category.ID.String(), Code: "PLA", Name: "PLA Filament",
	})
	require.NoError(t, err)
	material, err := f.materials.Create(ctx, materialdomain.CreateMaterialRequest{
		Name:              "PLA Black",
		MaterialTypeID:    typ.ID.String(),
		SerialNumber:      serial,
		UnitOfMeasurement: "kg",
	})
	require.NoError(t, err)
	_, err = f.materials.RecordEntry(ctx, materialdomain.RecordEntryRequest{
		MaterialID:   material.ID.String(),
		Quantity:     decimal.RequireFromString(qty),
		PricePerUnit: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return material
}

func TestMaterialScanFallsBackToPersonalJob(t *testing.T) {
	f := newFloor(t)
	f.addMaterial(t, "SN-88129", "20", "3.00")

	// Alice has never activated a job; the scan must land on her personal job.
	usage, err := f.svc.MaterialScan(context.Background(), MaterialScanRequest{
		Username:   "alice",
		Identifier: "SN-88129",
		Quantity:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	personal, err := f.activeJob.CurrentActiveJob(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, personal.IsPersonal)
	assert.Equal(t, personal.ID, usage.JobID)

	material, err := f.materials.Lookup(context.Background(), "SN-88129")
	require.NoError(t, err)
	assert.True(t, material.CurrentStock.Equal(decimal.NewFromInt(15)))
}

func TestMaterialScanRoutesToActiveJob(t *testing.T) {
	f := newFloor(t)
	f.addMaterial(t, "SN-88129", "20", "3.00")
	ctx := context.Background()

	job, err := f.jobs.Create(ctx, jobdomain.CreateJobRequest{ProjectName: "Bracket run"})
	require.NoError(t, err)
	_, err = f.activeJob.Activate(ctx, "alice", job.JobID)
	require.NoError(t, err)

	usage, err := f.svc.MaterialScan(ctx, MaterialScanRequest{
		Username:   "alice",
		Identifier: "SN-88129",
		Quantity:   decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	assert.Equal(t, job.ID, usage.JobID)

	var row jobdomain.JobFinancial
	require.NoError(t, f.db.Where("job_id = ?", job.ID).First(&row).Error)
	assert.Equal(t, "12.00", row.MaterialCost.StringFixed(2))
}

func TestMachineScanStartAndEnd(t *testing.T) {
	f := newFloor(t)
	ctx := context.Background()

	machineType, err := f.machines.CreateType(ctx, machinedomain.CreateTypeRequest{
		Code: "FDM", Name: "FDM Printer",
	})
	require.NoError(t, err)
	rate := decimal.NewFromInt(60)
	machine, err := f.machines.Create(ctx, machinedomain.CreateMachineRequest{
		Name:          "Prusa MK4",
		MachineTypeID: machineType.ID.String(),
		SerialNumber:  "PRUSA-777",
		HourlyRate:    &rate,
	})
	require.NoError(t, err)

	job, err := f.jobs.Create(ctx, jobdomain.CreateJobRequest{ProjectName: "Bracket run"})
	require.NoError(t, err)
	_, err = f.activeJob.Activate(ctx, "alice", job.JobID)
	require.NoError(t, err)

	started, err := f.svc.MachineScanStart(ctx, MachineScanRequest{
		Username:   "alice",
		Identifier: machine.MachineID,
	})
	require.NoError(t, err)
	assert.True(t, started.IsActive)

	f.clock.Advance(90 * time.Minute)

	ended, err := f.svc.MachineScanEnd(ctx, MachineScanRequest{
		Username:   "alice",
		Identifier: machine.MachineID,
	})
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	assert.Equal(t, 90, ended.OperationTime)
	require.NotNil(t, ended.TotalCost)
	assert.Equal(t, "90.00", ended.TotalCost.StringFixed(2))
}

func TestMachineScanEndWithoutSession(t *testing.T) {
	f := newFloor(t)
	ctx := context.Background()

	machineType, err := f.machines.CreateType(ctx, machinedomain.CreateTypeRequest{
		Code: "FDM", Name: "FDM Printer",
	})
	require.NoError(t, err)
	machine, err := f.machines.Create(ctx, machinedomain.CreateMachineRequest{
		Name:          "Prusa MK4",
		MachineTypeID: machineType.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.MachineScanEnd(ctx, MachineScanRequest{
		Username:   "alice",
		Identifier: machine.MachineID,
	})
	assert.ErrorIs(t, err, ErrNoOpenSession)
}
