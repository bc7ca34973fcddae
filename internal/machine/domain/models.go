package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type MachineStatus string

const (
	StatusActive      MachineStatus = "active"
	StatusMaintenance MachineStatus = "maintenance"
	StatusOutOfOrder  MachineStatus = "out_of_order"
)

type MaintenanceType string

const (
	MaintenancePreventive  MaintenanceType = "preventive"
	MaintenanceCorrective  MaintenanceType = "corrective"
	MaintenanceCalibration MaintenanceType = "calibration"
)

type MachineType struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"not null;uniqueIndex" json:"code"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
}

func (MachineType) TableName() string { return "machine_types" }

type Machine struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	MachineID          string           `gorm:"column:machine_id;not null;uniqueIndex" json:"machine_id"`
	Name               string           `gorm:"not null" json:"name"`
	MachineTypeID      snowflake.ID     `gorm:"not null" json:"machine_type_id"`
	Manufacturer       string           `gorm:"not null;default:''" json:"manufacturer,omitempty"`
	ModelNumber        string           `gorm:"not null;default:''" json:"model_number,omitempty"`
	SerialNumber       string           `gorm:"not null;default:''" json:"serial_number,omitempty"`
	LocationInWorkshop string           `gorm:"not null;default:''" json:"location_in_workshop,omitempty"`
	PurchaseDate       *time.Time       `gorm:"type:date" json:"purchase_date,omitempty"`
	PurchasePrice      *decimal.Decimal `gorm:"type:decimal(10,2)" json:"purchase_price,omitempty"`
	HourlyRate         *decimal.Decimal `gorm:"type:decimal(8,2)" json:"hourly_rate,omitempty"`
	SetupTime          *int             `gorm:"column:setup_time" json:"setup_time,omitempty"`
	SetupRate          *decimal.Decimal `gorm:"type:decimal(8,2)" json:"setup_rate,omitempty"`
	CleanupTime        *int             `gorm:"column:cleanup_time" json:"cleanup_time,omitempty"`
	CleanupRate        *decimal.Decimal `gorm:"type:decimal(8,2)" json:"cleanup_rate,omitempty"`
	Status             MachineStatus    `gorm:"not null;default:'active'" json:"status"`
	ReservedUntil      *time.Time       `json:"reserved_until,omitempty"`
	CreatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Machine) TableName() string { return "machines" }

// EffectiveSetupRate falls back to the hourly rate when no dedicated setup
// rate is configured. CleanupRate behaves the same way.
func (m Machine) EffectiveSetupRate() decimal.Decimal {
	if m.SetupRate != nil {
		return *m.SetupRate
	}
	if m.HourlyRate != nil {
		return *m.HourlyRate
	}
	return decimal.Zero
}

func (m Machine) EffectiveCleanupRate() decimal.Decimal {
	if m.CleanupRate != nil {
		return *m.CleanupRate
	}
	if m.HourlyRate != nil {
		return *m.HourlyRate
	}
	return decimal.Zero
}

func (m Machine) EffectiveHourlyRate() decimal.Decimal {
	if m.HourlyRate != nil {
		return *m.HourlyRate
	}
	return decimal.Zero
}

type MachineMaintenance struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	MachineID          snowflake.ID     `gorm:"column:machine_id;not null;index" json:"machine_id"`
	MaintenanceDate    time.Time        `gorm:"type:date;not null" json:"maintenance_date"`
	MaintenanceType    MaintenanceType  `gorm:"not null" json:"maintenance_type"`
	PerformedBy        string           `gorm:"not null" json:"performed_by"`
	IsExternalProvider bool             `gorm:"not null;default:false" json:"is_external_provider"`
	TasksPerformed     string           `gorm:"not null;default:''" json:"tasks_performed,omitempty"`
	PartsReplaced      string           `gorm:"not null;default:''" json:"parts_replaced,omitempty"`
	LaborCost          *decimal.Decimal `gorm:"type:decimal(10,2)" json:"labor_cost,omitempty"`
	PartsCost          *decimal.Decimal `gorm:"type:decimal(10,2)" json:"parts_cost,omitempty"`
	TotalCost          *decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_cost,omitempty"`
	DowntimeHours      *decimal.Decimal `gorm:"type:decimal(6,2)" json:"downtime_hours,omitempty"`
	IssuesFound        string           `gorm:"not null;default:''" json:"issues_found,omitempty"`
	CreatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MachineMaintenance) TableName() string { return "machine_maintenances" }

type MachineConsumable struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	MachineID             snowflake.ID    `gorm:"column:machine_id;not null;index" json:"machine_id"`
	Name                  string          `gorm:"not null" json:"name"`
	Description           string          `gorm:"not null;default:''" json:"description,omitempty"`
	PartNumber            string          `gorm:"not null;default:''" json:"part_number,omitempty"`
	CurrentStock          int             `gorm:"not null;default:0" json:"current_stock"`
	MinimumStockLevel     int             `gorm:"not null;default:1" json:"minimum_stock_level"`
	CostPerUnit           decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"cost_per_unit"`
	ExpectedLifetimeHours *int            `json:"expected_lifetime_hours,omitempty"`
	UsageCount            int             `gorm:"not null;default:0" json:"usage_count"`
	SupplierName          string          `gorm:"not null;default:''" json:"supplier_name,omitempty"`
	CreatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MachineConsumable) TableName() string { return "machine_consumables" }

func (c MachineConsumable) IsLowStock() bool {
	return c.CurrentStock <= c.MinimumStockLevel
}

// CostPerHour spreads the unit cost over the expected lifetime.
func (c MachineConsumable) CostPerHour() decimal.Decimal {
	if c.ExpectedLifetimeHours == nil || *c.ExpectedLifetimeHours <= 0 {
		return decimal.Zero
	}
	return c.CostPerUnit.DivRound(decimal.NewFromInt(int64(*c.ExpectedLifetimeHours)), 4)
}
