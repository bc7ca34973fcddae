package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateTypeRequest struct {
	Code        string
	Name        string
	Description string
}

type CreateMachineRequest struct {
	Name               string
	MachineTypeID      string
	Manufacturer       string
	ModelNumber        string
	SerialNumber       string
	LocationInWorkshop string
	PurchasePrice      *decimal.Decimal
	HourlyRate         *decimal.Decimal
	SetupTime          *int
	SetupRate          *decimal.Decimal
	CleanupTime        *int
	CleanupRate        *decimal.Decimal
}

type RecordMaintenanceRequest struct {
	MachineID          string
	MaintenanceDate    time.Time
	MaintenanceType    MaintenanceType
	PerformedBy        string
	IsExternalProvider bool
	TasksPerformed     string
	PartsReplaced      string
	LaborCost          *decimal.Decimal
	PartsCost          *decimal.Decimal
	DowntimeHours      *decimal.Decimal
	IssuesFound        string
}

type AddConsumableRequest struct {
	MachineID             string
	Name                  string
	Description           string
	PartNumber            string
	CurrentStock          int
	MinimumStockLevel     int
	CostPerUnit           decimal.Decimal
	ExpectedLifetimeHours *int
	SupplierName          string
}

type Service interface {
	CreateType(context.Context, CreateTypeRequest) (MachineType, error)
	Create(context.Context, CreateMachineRequest) (Machine, error)
	GetByID(ctx context.Context, id string) (Machine, error)
	List(context.Context) ([]Machine, error)
	SetStatus(ctx context.Context, id string, status MachineStatus) (Machine, error)

	// Lookup resolves a scanned identifier: machine_id, serial number, or
	// the scanner's "<machine_id>|<serial>" pipe format.
	Lookup(ctx context.Context, identifier string) (Machine, error)

	// RecordMaintenance stores the record; a corrective maintenance on a
	// machine parked in maintenance status returns it to active.
	RecordMaintenance(context.Context, RecordMaintenanceRequest) (MachineMaintenance, error)
	Maintenances(ctx context.Context, machineID string) ([]MachineMaintenance, error)

	AddConsumable(context.Context, AddConsumableRequest) (MachineConsumable, error)
	// RecordConsumableReplacement decrements consumable stock and bumps the
	// usage counter.
	RecordConsumableReplacement(ctx context.Context, consumableID string) (MachineConsumable, error)
	Consumables(ctx context.Context, machineID string) ([]MachineConsumable, error)
	LowStockConsumables(ctx context.Context, machineID string) ([]MachineConsumable, error)
}

var (
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidCode            = errors.New("invalid_code")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidMaintenanceType = errors.New("invalid_maintenance_type")
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("not_found")
	ErrDuplicateCode          = errors.New("duplicate_code")
	ErrConsumableDepleted     = errors.New("consumable_depleted")
)
