package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertType(ctx context.Context, db *gorm.DB, machineType *MachineType) error
	FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MachineType, error)
	FindTypeByCode(ctx context.Context, db *gorm.DB, code string) (*MachineType, error)

	Insert(ctx context.Context, db *gorm.DB, machine *Machine) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Machine, error)
	FindByMachineID(ctx context.Context, db *gorm.DB, machineID string) (*Machine, error)
	FindBySerialNumber(ctx context.Context, db *gorm.DB, serial string) (*Machine, error)
	List(ctx context.Context, db *gorm.DB) ([]*Machine, error)
	Update(ctx context.Context, db *gorm.DB, machine *Machine) error

	InsertMaintenance(ctx context.Context, db *gorm.DB, maintenance *MachineMaintenance) error
	ListMaintenances(ctx context.Context, db *gorm.DB, machineID snowflake.ID) ([]*MachineMaintenance, error)

	InsertConsumable(ctx context.Context, db *gorm.DB, consumable *MachineConsumable) error
	FindConsumableByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MachineConsumable, error)
	ListConsumables(ctx context.Context, db *gorm.DB, machineID snowflake.ID) ([]*MachineConsumable, error)
	UpdateConsumable(ctx context.Context, db *gorm.DB, consumable *MachineConsumable) error
}
