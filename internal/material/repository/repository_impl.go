package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/material/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCategory(ctx context.Context, db *gorm.DB, category *domain.MaterialCategory) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) FindCategoryByCode(ctx context.Context, db *gorm.DB, code string) (*domain.MaterialCategory, error) {
	var category domain.MaterialCategory
	err := db.WithContext(ctx).
		Where("code = ?", code).
		First(&category).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *repo) FindCategoryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MaterialCategory, error) {
	var category domain.MaterialCategory
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&category).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *repo) InsertType(ctx context.Context, db *gorm.DB, materialType *domain.MaterialType) error {
	return db.WithContext(ctx).Create(materialType).Error
}

func (r *repo) FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MaterialType, error) {
	var materialType domain.MaterialType
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&materialType).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &materialType, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, material *domain.Material) error {
	return db.WithContext(ctx).Create(material).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Material, error) {
	var material domain.Material
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&material).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &material, nil
}

func (r *repo) FindByMaterialID(ctx context.Context, db *gorm.DB, materialID string) (*domain.Material, error) {
	var material domain.Material
	err := db.WithContext(ctx).
		Where("material_id = ?", materialID).
		First(&material).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &material, nil
}

func (r *repo) FindBySerialNumber(ctx context.Context, db *gorm.DB, serial string) (*domain.Material, error) {
	var material domain.Material
	err := db.WithContext(ctx).
		Where("serial_number = ?", serial).
		Order("created_at desc").
		First(&material).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &material, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Material, error) {
	var materials []*domain.Material
	err := db.WithContext(ctx).
		Order("material_id asc").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *repo) ListLowStock(ctx context.Context, db *gorm.DB) ([]*domain.Material, error) {
	var materials []*domain.Material
	err := db.WithContext(ctx).
		Where("minimum_stock_level IS NOT NULL AND current_stock <= minimum_stock_level").
		Order("material_id asc").
		Find(&materials).Error
	if err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, material *domain.Material) error {
	return db.WithContext(ctx).Save(material).Error
}

func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, id snowflake.ID, delta decimal.Decimal, guard *decimal.Decimal) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Material{}).
		Where("id = ?", id)
	if guard != nil {
		stmt = stmt.Where("current_stock >= ?", *guard)
	}
	res := stmt.Update("current_stock", gorm.Expr("current_stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.MaterialEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) FindEntryByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MaterialEntry, error) {
	var entry domain.MaterialEntry
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, materialID snowflake.ID) ([]*domain.MaterialEntry, error) {
	var entries []*domain.MaterialEntry
	err := db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("purchase_date asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) UpdateEntry(ctx context.Context, db *gorm.DB, entry *domain.MaterialEntry) error {
	return db.WithContext(ctx).Save(entry).Error
}

func (r *repo) DeleteEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.MaterialEntry{}).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, transaction *domain.MaterialTransaction) error {
	return db.WithContext(ctx).Create(transaction).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, materialID snowflake.ID) ([]*domain.MaterialTransaction, error) {
	var transactions []*domain.MaterialTransaction
	err := db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("transaction_date asc, id asc").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}
