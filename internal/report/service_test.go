package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	machinedomain "github.com/makerbench/makerbench/internal/machine/domain"
	materialdomain "github.com/makerbench/makerbench/internal/material/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newReportDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:report_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&materialdomain.Material{},
		&machinedomain.Machine{},
		&jobdomain.JobStatus{},
		&jobdomain.Job{},
		&jobdomain.JobMachine{},
		&jobdomain.JobFinancial{},
	))
	return conn
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestStockReport(t *testing.T) {
	conn := newReportDB(t)
	svc := New(Params{DB: conn, Log: zap.NewNop()})

	minimum := decimal.NewFromInt(5)
	require.NoError(t, conn.Create(&materialdomain.Material{
		ID: 1, MaterialID: "PRT-PLA-0001", Name: "PLA Black",
		UnitOfMeasurement: "kg",
		CurrentStock:      decimal.NewFromInt(20),
		PricePerUnit:      ptr(decimal.RequireFromString("3.50")),
	}).Error)
	require.NoError(t, conn.Create(&materialdomain.Material{
		ID: 2, MaterialID: "PRT-PLA-0002", Name: "PLA Red",
		UnitOfMeasurement: "kg",
		CurrentStock:      decimal.NewFromInt(2),
		MinimumStockLevel: &minimum,
	}).Error)

	var buf bytes.Buffer
	require.NoError(t, svc.Stock(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cell := func(ref string) string {
		v, err := f.GetCellValue("Stock", ref)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Material ID", cell("A1"))
	assert.Equal(t, "PRT-PLA-0001", cell("A2"))
	assert.Equal(t, "20.00", cell("E2"))
	assert.Equal(t, "3.50", cell("F2"))
	assert.Equal(t, "70.00", cell("G2"))
	assert.Equal(t, "", cell("H2"))
	assert.Equal(t, "PRT-PLA-0002", cell("A3"))
	assert.Equal(t, "", cell("F3"))
	assert.Equal(t, "LOW", cell("H3"))
}

func TestMachineUsageReportAggregatesWindow(t *testing.T) {
	conn := newReportDB(t)
	svc := New(Params{DB: conn, Log: zap.NewNop()})

	require.NoError(t, conn.Create(&machinedomain.Machine{
		ID: 1, MachineID: "FDM-0001", Name: "Prusa MK4", Status: machinedomain.StatusActive,
	}).Error)

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	inside := march.Add(48 * time.Hour)
	outside := april.Add(24 * time.Hour)

	require.NoError(t, conn.Create(&jobdomain.JobMachine{
		ID: 10, JobID: 100, MachineID: 1, StartTime: inside,
		OperationTime: 90, SetupTime: 10, IsActive: false,
		TotalCost: ptr(decimal.RequireFromString("95.00")),
	}).Error)
	require.NoError(t, conn.Create(&jobdomain.JobMachine{
		ID: 11, JobID: 100, MachineID: 1, StartTime: inside.Add(time.Hour),
		OperationTime: 30, IsActive: false,
		TotalCost: ptr(decimal.RequireFromString("30.00")),
	}).Error)
	// Outside the window and still running, both excluded.
	require.NoError(t, conn.Create(&jobdomain.JobMachine{
		ID: 12, JobID: 100, MachineID: 1, StartTime: outside,
		OperationTime: 500, IsActive: false,
		TotalCost: ptr(decimal.RequireFromString("500.00")),
	}).Error)
	require.NoError(t, conn.Create(&jobdomain.JobMachine{
		ID: 13, JobID: 100, MachineID: 1, StartTime: inside,
		IsActive: true,
	}).Error)

	var buf bytes.Buffer
	require.NoError(t, svc.MachineUsage(context.Background(), &buf, march, april))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cell := func(ref string) string {
		v, err := f.GetCellValue("Machine Usage", ref)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "FDM-0001", cell("A2"))
	assert.Equal(t, "2", cell("D2"))
	assert.Equal(t, "130", cell("E2"))
	assert.Equal(t, "125.00", cell("F2"))
}

func TestJobCostsReportSkipsPersonalJobs(t *testing.T) {
	conn := newReportDB(t)
	svc := New(Params{DB: conn, Log: zap.NewNop()})

	require.NoError(t, conn.Create(&jobdomain.JobStatus{ID: 1, Name: "In Progress", SortOrder: 1}).Error)
	require.NoError(t, conn.Create(&jobdomain.Job{
		ID: 100, JobID: "JOB-2025-0001", ProjectName: "Bracket run", StatusID: 1,
	}).Error)
	require.NoError(t, conn.Create(&jobdomain.Job{
		ID: 101, JobID: "PERS-ALIC-2025", ProjectName: "Personal work", StatusID: 1, IsPersonal: true,
	}).Error)
	require.NoError(t, conn.Create(&jobdomain.JobFinancial{
		ID: 200, JobID: 100,
		MaterialCost: decimal.RequireFromString("30.00"),
		MachineCost:  decimal.RequireFromString("45.00"),
		LaborCost:    decimal.RequireFromString("25.00"),
		TotalCost:    decimal.RequireFromString("100.00"),
		QuotedAmount: ptr(decimal.RequireFromString("150.00")),
		BilledAmount: decimal.RequireFromString("50.00"),
		BillingStatus: jobdomain.BillingPartiallyBilled,
	}).Error)

	var buf bytes.Buffer
	require.NoError(t, svc.JobCosts(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Job Costs")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	cell := func(ref string) string {
		v, err := f.GetCellValue("Job Costs", ref)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "JOB-2025-0001", cell("A2"))
	assert.Equal(t, "In Progress", cell("C2"))
	assert.Equal(t, "100.00", cell("G2"))
	assert.Equal(t, "partially_billed", cell("J2"))
	assert.Equal(t, "33.33", cell("K2"))
}
