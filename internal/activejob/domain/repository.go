package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByOperator(ctx context.Context, db *gorm.DB, operatorID snowflake.ID) (*StaffSettings, error)
	Insert(ctx context.Context, db *gorm.DB, settings *StaffSettings) error
	Update(ctx context.Context, db *gorm.DB, settings *StaffSettings) error
}
