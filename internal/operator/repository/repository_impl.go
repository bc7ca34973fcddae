package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/operator/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, operator *domain.Operator) error {
	return db.WithContext(ctx).Create(operator).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Operator, error) {
	var operator domain.Operator
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&operator).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

func (r *repo) FindByUsername(ctx context.Context, db *gorm.DB, username string) (*domain.Operator, error) {
	var operator domain.Operator
	err := db.WithContext(ctx).
		Where("username = ?", username).
		First(&operator).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &operator, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Operator, error) {
	var operators []*domain.Operator
	err := db.WithContext(ctx).
		Order("username asc").
		Find(&operators).Error
	if err != nil {
		return nil, err
	}
	return operators, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, operator *domain.Operator) error {
	return db.WithContext(ctx).Save(operator).Error
}
