package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/activejob/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByOperator(ctx context.Context, db *gorm.DB, operatorID snowflake.ID) (*domain.StaffSettings, error) {
	var settings domain.StaffSettings
	err := db.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		First(&settings).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, settings *domain.StaffSettings) error {
	return db.WithContext(ctx).Create(settings).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, settings *domain.StaffSettings) error {
	return db.WithContext(ctx).Save(settings).Error
}
