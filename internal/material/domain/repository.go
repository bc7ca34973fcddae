package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCategory(ctx context.Context, db *gorm.DB, category *MaterialCategory) error
	FindCategoryByCode(ctx context.Context, db *gorm.DB, code string) (*MaterialCategory, error)
	InsertType(ctx context.Context, db *gorm.DB, materialType *MaterialType) error
	FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MaterialType, error)
	FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MaterialCategory, error)

	Insert(ctx context.Context, db *gorm.DB, material *Material) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Material, error)
	FindByMaterialID(ctx context.Context, db *gorm.DB, materialID string) (*Material, error)
	FindBySerialNumber(ctx context.Context, db *gorm.DB, serial string) (*Material, error)
	List(ctx context.Context, db *gorm.DB) ([]*Material, error)
	ListLowStock(ctx context.Context, db *gorm.DB) ([]*Material, error)
	Update(ctx context.Context, db *gorm.DB, material *Material) error

	// AdjustStock applies a delta to current_stock. When guard is non-nil the
	// update only lands if current_stock >= guard; it reports whether a row
	// was changed.
	AdjustStock(ctx context.Context, db *gorm.DB, id snowflake.ID, delta decimal.Decimal, guard *decimal.Decimal) (bool, error)

	InsertEntry(ctx context.Context, db *gorm.DB, entry *MaterialEntry) error
	FindEntryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MaterialEntry, error)
	ListEntries(ctx context.Context, db *gorm.DB, materialID snowflake.ID) ([]*MaterialEntry, error)
	UpdateEntry(ctx context.Context, db *gorm.DB, entry *MaterialEntry) error
	DeleteEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertTransaction(ctx context.Context, db *gorm.DB, transaction *MaterialTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, materialID snowflake.ID) ([]*MaterialTransaction, error)
}
