package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/machine/domain"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	"github.com/makerbench/makerbench/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Alloc   *identifier.Allocator
	Metrics *metrics.Metrics
	Repo    domain.Repository
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	alloc   *identifier.Allocator
	metrics *metrics.Metrics
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("machine.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		alloc:   p.Alloc,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *Service) CreateType(ctx context.Context, req domain.CreateTypeRequest) (domain.MachineType, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.MachineType{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.MachineType{}, domain.ErrInvalidName
	}

	machineType := domain.MachineType{
		ID:          s.genID.Generate(),
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.InsertType(ctx, s.db, &machineType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MachineType{}, domain.ErrDuplicateCode
		}
		return domain.MachineType{}, err
	}
	return machineType, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateMachineRequest) (domain.Machine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Machine{}, domain.ErrInvalidName
	}

	typeID, err := s.parseID(req.MachineTypeID)
	if err != nil {
		return domain.Machine{}, err
	}
	machineType, err := s.repo.FindTypeByID(ctx, s.db, typeID)
	if err != nil {
		return domain.Machine{}, err
	}
	if machineType == nil {
		return domain.Machine{}, domain.ErrNotFound
	}

	prefix := identifier.MachinePrefix(machineType.Code)

	var created domain.Machine
	attempts := s.cfg.IdentifierRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			machineID, err := s.alloc.Next(ctx, tx, "machines", "machine_id", prefix)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			created = domain.Machine{
				ID:                 s.genID.Generate(),
				MachineID:          machineID,
				Name:               name,
				MachineTypeID:      typeID,
				Manufacturer:       strings.TrimSpace(req.Manufacturer),
				ModelNumber:        strings.TrimSpace(req.ModelNumber),
				SerialNumber:       strings.TrimSpace(req.SerialNumber),
				LocationInWorkshop: strings.TrimSpace(req.LocationInWorkshop),
				PurchasePrice:      req.PurchasePrice,
				HourlyRate:         req.HourlyRate,
				SetupTime:          req.SetupTime,
				SetupRate:          req.SetupRate,
				CleanupTime:        req.CleanupTime,
				CleanupRate:        req.CleanupRate,
				Status:             domain.StatusActive,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			return s.repo.Insert(ctx, tx, &created)
		})
		if err == nil {
			return created, nil
		}
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordIdentifierConflict("machine")
			s.log.Warn("machine id conflict, retrying",
				zap.String("prefix", prefix),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return domain.Machine{}, err
	}
	return domain.Machine{}, identifier.ErrIdentifierConflict
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Machine, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Machine{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Machine{}, err
	}
	if item == nil {
		return domain.Machine{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Machine, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	machines := make([]domain.Machine, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		machines = append(machines, *item)
	}
	return machines, nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status domain.MachineStatus) (domain.Machine, error) {
	switch status {
	case domain.StatusActive, domain.StatusMaintenance, domain.StatusOutOfOrder:
	default:
		return domain.Machine{}, domain.ErrInvalidStatus
	}

	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Machine{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Machine{}, err
	}
	if item == nil {
		return domain.Machine{}, domain.ErrNotFound
	}

	item.Status = status
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Machine{}, err
	}
	return *item, nil
}

func (s *Service) Lookup(ctx context.Context, scanned string) (domain.Machine, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" {
		return domain.Machine{}, domain.ErrInvalidID
	}

	candidates := []string{scanned}
	if strings.Contains(scanned, "|") {
		candidates = strings.Split(scanned, "|")
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		item, err := s.repo.FindByMachineID(ctx, s.db, candidate)
		if err != nil {
			return domain.Machine{}, err
		}
		if item != nil {
			return *item, nil
		}
		item, err = s.repo.FindBySerialNumber(ctx, s.db, candidate)
		if err != nil {
			return domain.Machine{}, err
		}
		if item != nil {
			return *item, nil
		}
	}
	return domain.Machine{}, domain.ErrNotFound
}

func (s *Service) RecordMaintenance(ctx context.Context, req domain.RecordMaintenanceRequest) (domain.MachineMaintenance, error) {
	switch req.MaintenanceType {
	case domain.MaintenancePreventive, domain.MaintenanceCorrective, domain.MaintenanceCalibration:
	default:
		return domain.MachineMaintenance{}, domain.ErrInvalidMaintenanceType
	}
	performedBy := strings.TrimSpace(req.PerformedBy)
	if performedBy == "" {
		return domain.MachineMaintenance{}, domain.ErrInvalidName
	}

	machineID, err := s.parseID(req.MachineID)
	if err != nil {
		return domain.MachineMaintenance{}, err
	}
	machine, err := s.repo.FindByID(ctx, s.db, machineID)
	if err != nil {
		return domain.MachineMaintenance{}, err
	}
	if machine == nil {
		return domain.MachineMaintenance{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	maintenanceDate := req.MaintenanceDate
	if maintenanceDate.IsZero() {
		maintenanceDate = now
	}

	total := sumCosts(req.LaborCost, req.PartsCost)
	maintenance := domain.MachineMaintenance{
		ID:                 s.genID.Generate(),
		MachineID:          machineID,
		MaintenanceDate:    maintenanceDate,
		MaintenanceType:    req.MaintenanceType,
		PerformedBy:        performedBy,
		IsExternalProvider: req.IsExternalProvider,
		TasksPerformed:     strings.TrimSpace(req.TasksPerformed),
		PartsReplaced:      strings.TrimSpace(req.PartsReplaced),
		LaborCost:          req.LaborCost,
		PartsCost:          req.PartsCost,
		TotalCost:          total,
		DowntimeHours:      req.DowntimeHours,
		IssuesFound:        strings.TrimSpace(req.IssuesFound),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertMaintenance(ctx, tx, &maintenance); err != nil {
			return err
		}
		// A corrective repair on a machine waiting in maintenance brings it
		// back into service.
		if req.MaintenanceType == domain.MaintenanceCorrective && machine.Status == domain.StatusMaintenance {
			machine.Status = domain.StatusActive
			machine.UpdatedAt = now
			return s.repo.Update(ctx, tx, machine)
		}
		return nil
	})
	if err != nil {
		return domain.MachineMaintenance{}, err
	}
	return maintenance, nil
}

func (s *Service) Maintenances(ctx context.Context, machineID string) ([]domain.MachineMaintenance, error) {
	parsed, err := s.parseID(machineID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListMaintenances(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	maintenances := make([]domain.MachineMaintenance, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		maintenances = append(maintenances, *item)
	}
	return maintenances, nil
}

func (s *Service) AddConsumable(ctx context.Context, req domain.AddConsumableRequest) (domain.MachineConsumable, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.MachineConsumable{}, domain.ErrInvalidName
	}

	machineID, err := s.parseID(req.MachineID)
	if err != nil {
		return domain.MachineConsumable{}, err
	}
	machine, err := s.repo.FindByID(ctx, s.db, machineID)
	if err != nil {
		return domain.MachineConsumable{}, err
	}
	if machine == nil {
		return domain.MachineConsumable{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	minimum := req.MinimumStockLevel
	if minimum <= 0 {
		minimum = 1
	}
	consumable := domain.MachineConsumable{
		ID:                    s.genID.Generate(),
		MachineID:             machineID,
		Name:                  name,
		Description:           strings.TrimSpace(req.Description),
		PartNumber:            strings.TrimSpace(req.PartNumber),
		CurrentStock:          req.CurrentStock,
		MinimumStockLevel:     minimum,
		CostPerUnit:           req.CostPerUnit,
		ExpectedLifetimeHours: req.ExpectedLifetimeHours,
		SupplierName:          strings.TrimSpace(req.SupplierName),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.InsertConsumable(ctx, s.db, &consumable); err != nil {
		return domain.MachineConsumable{}, err
	}
	return consumable, nil
}

func (s *Service) RecordConsumableReplacement(ctx context.Context, consumableID string) (domain.MachineConsumable, error) {
	parsed, err := s.parseID(consumableID)
	if err != nil {
		return domain.MachineConsumable{}, err
	}

	consumable, err := s.repo.FindConsumableByID(ctx, s.db, parsed)
	if err != nil {
		return domain.MachineConsumable{}, err
	}
	if consumable == nil {
		return domain.MachineConsumable{}, domain.ErrNotFound
	}
	if consumable.CurrentStock <= 0 {
		return domain.MachineConsumable{}, domain.ErrConsumableDepleted
	}

	consumable.CurrentStock--
	consumable.UsageCount++
	consumable.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateConsumable(ctx, s.db, consumable); err != nil {
		return domain.MachineConsumable{}, err
	}

	if consumable.IsLowStock() {
		s.log.Warn("consumable at or below minimum stock",
			zap.String("consumable", consumable.Name),
			zap.Int("current_stock", consumable.CurrentStock),
			zap.Int("minimum", consumable.MinimumStockLevel),
		)
	}
	return *consumable, nil
}

func (s *Service) Consumables(ctx context.Context, machineID string) ([]domain.MachineConsumable, error) {
	parsed, err := s.parseID(machineID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListConsumables(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	consumables := make([]domain.MachineConsumable, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		consumables = append(consumables, *item)
	}
	return consumables, nil
}

func (s *Service) LowStockConsumables(ctx context.Context, machineID string) ([]domain.MachineConsumable, error) {
	all, err := s.Consumables(ctx, machineID)
	if err != nil {
		return nil, err
	}

	low := make([]domain.MachineConsumable, 0, len(all))
	for _, consumable := range all {
		if consumable.IsLowStock() {
			low = append(low, consumable)
		}
	}
	return low, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func sumCosts(labor, parts *decimal.Decimal) *decimal.Decimal {
	if labor == nil && parts == nil {
		return nil
	}
	total := decimal.Zero
	if labor != nil {
		total = total.Add(*labor)
	}
	if parts != nil {
		total = total.Add(*parts)
	}
	return &total
}
