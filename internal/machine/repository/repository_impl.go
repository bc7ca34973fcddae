package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/machine/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertType(ctx context.Context, db *gorm.DB, machineType *domain.MachineType) error {
	return db.WithContext(ctx).Create(machineType).Error
}

func (r *repo) FindTypeByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MachineType, error) {
	var machineType domain.MachineType
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&machineType).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &machineType, nil
}

func (r *repo) FindTypeByCode(ctx context.Context, db *gorm.DB, code string) (*domain.MachineType, error) {
	var machineType domain.MachineType
	err := db.WithContext(ctx).
		Where("code = ?", code).
		First(&machineType).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &machineType, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, machine *domain.Machine) error {
	return db.WithContext(ctx).Create(machine).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Machine, error) {
	var machine domain.Machine
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&machine).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &machine, nil
}

func (r *repo) FindByMachineID(ctx context.Context, db *gorm.DB, machineID string) (*domain.Machine, error) {
	var machine domain.Machine
	err := db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		First(&machine).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &machine, nil
}

func (r *repo) FindBySerialNumber(ctx context.Context, db *gorm.DB, serial string) (*domain.Machine, error) {
	var machine domain.Machine
	err := db.WithContext(ctx).
		Where("serial_number = ?", serial).
		Order("created_at desc").
		First(&machine).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &machine, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Machine, error) {
	var machines []*domain.Machine
	err := db.WithContext(ctx).
		Order("machine_id asc").
		Find(&machines).Error
	if err != nil {
		return nil, err
	}
	return machines, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, machine *domain.Machine) error {
	return db.WithContext(ctx).Save(machine).Error
}

func (r *repo) InsertMaintenance(ctx context.Context, db *gorm.DB, maintenance *domain.MachineMaintenance) error {
	return db.WithContext(ctx).Create(maintenance).Error
}

func (r *repo) ListMaintenances(ctx context.Context, db *gorm.DB, machineID snowflake.ID) ([]*domain.MachineMaintenance, error) {
	var maintenances []*domain.MachineMaintenance
	err := db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("maintenance_date desc, id desc").
		Find(&maintenances).Error
	if err != nil {
		return nil, err
	}
	return maintenances, nil
}

func (r *repo) InsertConsumable(ctx context.Context, db *gorm.DB, consumable *domain.MachineConsumable) error {
	return db.WithContext(ctx).Create(consumable).Error
}

func (r *repo) FindConsumableByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MachineConsumable, error) {
	var consumable domain.MachineConsumable
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&consumable).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &consumable, nil
}

func (r *repo) ListConsumables(ctx context.Context, db *gorm.DB, machineID snowflake.ID) ([]*domain.MachineConsumable, error) {
	var consumables []*domain.MachineConsumable
	err := db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("name asc").
		Find(&consumables).Error
	if err != nil {
		return nil, err
	}
	return consumables, nil
}

func (r *repo) UpdateConsumable(ctx context.Context, db *gorm.DB, consumable *domain.MachineConsumable) error {
	return db.WithContext(ctx).Save(consumable).Error
}
