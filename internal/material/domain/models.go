package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionConsumption TransactionType = "consumption"
	TransactionReturn      TransactionType = "return"
)

type MaterialCategory struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"not null;uniqueIndex" json:"code"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MaterialCategory) TableName() string { return "material_categories" }

type MaterialType struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CategoryID  snowflake.ID `gorm:"not null;uniqueIndex:ux_material_types_category_code" json:"category_id"`
	Code        string       `gorm:"not null;uniqueIndex:ux_material_types_category_code" json:"code"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `gorm:"not null;default:''" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MaterialType) TableName() string { return "material_types" }

// Material carries the two ledger-derived columns, current_stock and
// price_per_unit. Both are denormalized from the entry and transaction
// history and can be rebuilt at any time with Recalculate.
type Material struct {
	ID                 snowflake.ID     `gorm:"primaryKey" json:"id"`
	MaterialID         string           `gorm:"column:material_id;not null;uniqueIndex" json:"material_id"`
	SerialNumber       string           `gorm:"not null;default:'';index" json:"serial_number,omitempty"`
	SupplierSKU        string           `gorm:"column:supplier_sku;not null;default:''" json:"supplier_sku,omitempty"`
	Name               string           `gorm:"not null" json:"name"`
	MaterialTypeID     snowflake.ID     `gorm:"not null" json:"material_type_id"`
	Color              string           `gorm:"not null;default:''" json:"color,omitempty"`
	Dimensions         string           `gorm:"not null;default:''" json:"dimensions,omitempty"`
	UnitOfMeasurement  string           `gorm:"not null" json:"unit_of_measurement"`
	SupplierName       string           `gorm:"not null;default:''" json:"supplier_name,omitempty"`
	BrandName          string           `gorm:"not null;default:''" json:"brand_name,omitempty"`
	CurrentStock       decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"current_stock"`
	MinimumStockLevel  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"minimum_stock_level,omitempty"`
	LocationInWorkshop string           `gorm:"not null;default:''" json:"location_in_workshop,omitempty"`
	PurchaseDate       *time.Time       `gorm:"type:date" json:"purchase_date,omitempty"`
	PricePerUnit       *decimal.Decimal `gorm:"type:decimal(10,2)" json:"price_per_unit,omitempty"`
	ProjectAssociation string           `gorm:"not null;default:''" json:"project_association,omitempty"`
	Notes              string           `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Material) TableName() string { return "materials" }

// IsLowStock reports whether the balance sits at or below the configured
// minimum. Materials without a minimum never flag.
func (m Material) IsLowStock() bool {
	if m.MinimumStockLevel == nil {
		return false
	}
	return m.CurrentStock.LessThanOrEqual(*m.MinimumStockLevel)
}

// MaterialEntry is a purchase: the only way stock and value enter the ledger.
type MaterialEntry struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	MaterialID   snowflake.ID    `gorm:"column:material_id;not null;index" json:"material_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_per_unit"`
	PurchaseDate time.Time       `gorm:"type:date;not null" json:"purchase_date"`
	SupplierName string          `gorm:"not null;default:''" json:"supplier_name,omitempty"`
	Notes        string          `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MaterialEntry) TableName() string { return "material_entries" }

// MaterialTransaction is an outbound or inbound stock movement. Job-driven
// consumption and returns are recorded here as well, so the balance is always
// the net of the full history.
type MaterialTransaction struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	MaterialID      snowflake.ID    `gorm:"column:material_id;not null;index" json:"material_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	TransactionType TransactionType `gorm:"not null" json:"transaction_type"`
	TransactionDate time.Time       `gorm:"not null" json:"transaction_date"`
	JobReference    string          `gorm:"not null;default:''" json:"job_reference,omitempty"`
	OperatorName    string          `gorm:"not null;default:''" json:"operator_name,omitempty"`
	Notes           string          `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (MaterialTransaction) TableName() string { return "material_transactions" }
