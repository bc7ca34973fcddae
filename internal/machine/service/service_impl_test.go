package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/machine/domain"
	"github.com/makerbench/makerbench/internal/machine/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:machine_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.MachineType{},
		&domain.Machine{},
		&domain.MachineMaintenance{},
		&domain.MachineConsumable{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Config: config.Config{IdentifierRetries: 3},
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		Alloc:  identifier.New(identifier.Params{Log: zap.NewNop()}),
		Repo:   repository.Provide(),
	})
	return svc, conn
}

func createMachine(t *testing.T, svc domain.Service, serial string) domain.Machine {
	t.Helper()
	ctx := context.Background()

	machineType, err := svc.CreateType(ctx, domain.CreateTypeRequest{Code: "FDM", Name: "FDM printer"})
	if err == domain.ErrDuplicateCode {
		machines, listErr := svc.List(ctx)
		require.NoError(t, listErr)
		require.NotEmpty(t, machines)
		machineType = domain.MachineType{ID: machines[0].MachineTypeID}
	} else {
		require.NoError(t, err)
	}

	rate := decimal.RequireFromString("30.00")
	machine, err := svc.Create(ctx, domain.CreateMachineRequest{
		Name:          "Prusa MK4",
		MachineTypeID: machineType.ID.String(),
		SerialNumber:  serial,
		HourlyRate:    &rate,
	})
	require.NoError(t, err)
	return machine
}

func TestCreateAllocatesTypedIdentifier(t *testing.T) {
	svc, _ := setupService(t)
	machine := createMachine(t, svc, "")
	assert.Equal(t, "FDM-0001", machine.MachineID)

	second := createMachine(t, svc, "")
	assert.Equal(t, "FDM-0002", second.MachineID)
}

func TestLookupResolvesScannerFormats(t *testing.T) {
	svc, _ := setupService(t)
	machine := createMachine(t, svc, "MK4-991")

	found, err := svc.Lookup(context.Background(), machine.MachineID)
	require.NoError(t, err)
	assert.Equal(t, machine.ID, found.ID)

	found, err = svc.Lookup(context.Background(), "MK4-991")
	require.NoError(t, err)
	assert.Equal(t, machine.ID, found.ID)

	found, err = svc.Lookup(context.Background(), machine.MachineID+"|MK4-991")
	require.NoError(t, err)
	assert.Equal(t, machine.ID, found.ID)

	_, err = svc.Lookup(context.Background(), "FDM-9999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorrectiveMaintenanceReactivatesMachine(t *testing.T) {
	svc, _ := setupService(t)
	machine := createMachine(t, svc, "")

	_, err := svc.SetStatus(context.Background(), machine.ID.String(), domain.StatusMaintenance)
	require.NoError(t, err)

	labor := decimal.RequireFromString("80.00")
	parts := decimal.RequireFromString("20.50")
	maintenance, err := svc.RecordMaintenance(context.Background(), domain.RecordMaintenanceRequest{
		MachineID:       machine.ID.String(),
		MaintenanceType: domain.MaintenanceCorrective,
		PerformedBy:     "bob",
		LaborCost:       &labor,
		PartsCost:       &parts,
	})
	require.NoError(t, err)
	require.NotNil(t, maintenance.TotalCost)
	assert.True(t, maintenance.TotalCost.Equal(decimal.RequireFromString("100.50")))

	updated, err := svc.GetByID(context.Background(), machine.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, updated.Status)
}

func TestPreventiveMaintenanceKeepsStatus(t *testing.T) {
	svc, _ := setupService(t)
	machine := createMachine(t, svc, "")

	_, err := svc.SetStatus(context.Background(), machine.ID.String(), domain.StatusMaintenance)
	require.NoError(t, err)

	_, err = svc.RecordMaintenance(context.Background(), domain.RecordMaintenanceRequest{
		MachineID:       machine.ID.String(),
		MaintenanceType: domain.MaintenancePreventive,
		PerformedBy:     "bob",
	})
	require.NoError(t, err)

	updated, err := svc.GetByID(context.Background(), machine.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMaintenance, updated.Status)
}

func TestConsumableReplacementTracksStock(t *testing.T) {
	svc, _ := setupService(t)
	machine := createMachine(t, svc, "")

	lifetime := 100
	consumable, err := svc.AddConsumable(context.Background(), domain.AddConsumableRequest{
		MachineID:             machine.ID.String(),
		Name:                  "Nozzle 0.4mm",
		CurrentStock:          2,
		MinimumStockLevel:     1,
		CostPerUnit:           decimal.RequireFromString("12.00"),
		ExpectedLifetimeHours: &lifetime,
	})
	require.NoError(t, err)
	assert.True(t, consumable.CostPerHour().Equal(decimal.RequireFromString("0.12")))

	replaced, err := svc.RecordConsumableReplacement(context.Background(), consumable.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, replaced.CurrentStock)
	assert.Equal(t, 1, replaced.UsageCount)
	assert.True(t, replaced.IsLowStock())

	low, err := svc.LowStockConsumables(context.Background(), machine.ID.String())
	require.NoError(t, err)
	require.Len(t, low, 1)

	_, err = svc.RecordConsumableReplacement(context.Background(), consumable.ID.String())
	require.NoError(t, err)
	_, err = svc.RecordConsumableReplacement(context.Background(), consumable.ID.String())
	assert.ErrorIs(t, err, domain.ErrConsumableDepleted)
}
