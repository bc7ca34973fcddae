package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateCategoryRequest struct {
	Code        string
	Name        string
	Description string
}

type CreateTypeRequest struct {
	CategoryID  string
	Code        string
	Name        string
	Description string
}

type CreateMaterialRequest struct {
	Name               string
	MaterialTypeID     string
	SerialNumber       string
	SupplierSKU        string
	Color              string
	Dimensions         string
	UnitOfMeasurement  string
	SupplierName       string
	BrandName          string
	MinimumStockLevel  *decimal.Decimal
	LocationInWorkshop string
	Notes              string
}

type RecordEntryRequest struct {
	MaterialID   string
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	PurchaseDate time.Time
	SupplierName string
	Notes        string
}

type UpdateEntryRequest struct {
	EntryID      string
	Quantity     *decimal.Decimal
	PricePerUnit *decimal.Decimal
	Notes        *string
}

type RecordTransactionRequest struct {
	MaterialID   string
	Quantity     decimal.Decimal
	Type         TransactionType
	JobReference string
	OperatorName string
	Notes        string
}

type JobUsageRequest struct {
	MaterialID   string
	Quantity     decimal.Decimal
	JobReference string
	OperatorName string
	Notes        string
}

type Service interface {
	CreateCategory(context.Context, CreateCategoryRequest) (MaterialCategory, error)
	CreateType(context.Context, CreateTypeRequest) (MaterialType, error)

	Create(context.Context, CreateMaterialRequest) (Material, error)
	GetByID(ctx context.Context, id string) (Material, error)
	List(context.Context) ([]Material, error)
	LowStock(context.Context) ([]Material, error)

	// Lookup resolves a scanned identifier: material_id, serial number, or
	// the scanner's "<material_id>|<serial>" pipe format.
	Lookup(ctx context.Context, identifier string) (Material, error)

	RecordEntry(context.Context, RecordEntryRequest) (MaterialEntry, error)
	UpdateEntry(context.Context, UpdateEntryRequest) (MaterialEntry, error)
	DeleteEntry(ctx context.Context, entryID string) error
	RecordTransaction(context.Context, RecordTransactionRequest) (MaterialTransaction, error)

	// ConsumeForJob and ReturnForJob apply job-driven stock movements and
	// record them in the transaction history.
	ConsumeForJob(context.Context, JobUsageRequest) (MaterialTransaction, error)
	ReturnForJob(context.Context, JobUsageRequest) (MaterialTransaction, error)

	// Recalculate rebuilds current_stock and the weighted-average
	// price_per_unit from the full entry and transaction history.
	Recalculate(ctx context.Context, materialID string) (Material, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidUnit       = errors.New("invalid_unit")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidType       = errors.New("invalid_transaction_type")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
