package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/material/domain"
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
		log:     p.Log.Named("material.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		alloc:   p.Alloc,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CreateCategoryRequest) (domain.MaterialCategory, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.MaterialCategory{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.MaterialCategory{}, domain.ErrInvalidName
	}

	category := domain.MaterialCategory{
		ID:          s.genID.Generate(),
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertCategory(ctx, s.db, &category); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MaterialCategory{}, domain.ErrDuplicateCode
		}
		return domain.MaterialCategory{}, err
	}
	return category, nil
}

func (s *Service) CreateType(ctx context.Context, req domain.CreateTypeRequest) (domain.MaterialType, error) {
	categoryID, err := s.parseID(req.CategoryID)
	if err != nil {
		return domain.MaterialType{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.MaterialType{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.MaterialType{}, domain.ErrInvalidName
	}

	category, err := s.repo.FindCategoryByID(ctx, s.db, categoryID)
	if err != nil {
		return domain.MaterialType{}, err
	}
	if category == nil {
		return domain.MaterialType{}, domain.ErrNotFound
	}

	materialType := domain.MaterialType{
		ID:          s.genID.Generate(),
		CategoryID:  categoryID,
		Code:        code,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertType(ctx, s.db, &materialType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MaterialType{}, domain.ErrDuplicateCode
		}
		return domain.MaterialType{}, err
	}
	return materialType, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateMaterialRequest) (domain.Material, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Material{}, domain.ErrInvalidName
	}
	unit := strings.TrimSpace(req.UnitOfMeasurement)
	if unit == "" {
		return domain.Material{}, domain.ErrInvalidUnit
	}

	typeID, err := s.parseID(req.MaterialTypeID)
	if err != nil {
		return domain.Material{}, err
	}
	materialType, err := s.repo.FindTypeByID(ctx, s.db, typeID)
	if err != nil {
		return domain.Material{}, err
	}
	if materialType == nil {
		return domain.Material{}, domain.ErrNotFound
	}
	category, err := s.repo.FindCategoryByID(ctx, s.db, materialType.CategoryID)
	if err != nil {
		return domain.Material{}, err
	}
	if category == nil {
		return domain.Material{}, domain.ErrNotFound
	}

	prefix := identifier.MaterialPrefix(category.Code, materialType.Code)
	serial := strings.TrimSpace(req.SerialNumber)

	var created domain.Material
	attempts := s.cfg.IdentifierRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		// First attempt derives the identifier from the serial number when
		// one was supplied; a collision falls back to sequential allocation.
		useSerial := serial != "" && i == 0
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var materialID string
			if useSerial {
				derived, ok := identifier.FromSerial(prefix, serial)
				if !ok {
					useSerial = false
				} else {
					materialID = derived
				}
			}
			if materialID == "" {
				next, err := s.alloc.Next(ctx, tx, "materials", "material_id", prefix)
				if err != nil {
					return err
				}
				materialID = next
			}
			now := s.clock.Now()
			created = domain.Material{
				ID:                 s.genID.Generate(),
				MaterialID:         materialID,
				SerialNumber:       serial,
				SupplierSKU:        strings.TrimSpace(req.SupplierSKU),
				Name:               name,
				MaterialTypeID:     typeID,
				Color:              strings.TrimSpace(req.Color),
				Dimensions:         strings.TrimSpace(req.Dimensions),
				UnitOfMeasurement:  unit,
				SupplierName:       strings.TrimSpace(req.SupplierName),
				BrandName:          strings.TrimSpace(req.BrandName),
				CurrentStock:       decimal.Zero,
				MinimumStockLevel:  req.MinimumStockLevel,
				LocationInWorkshop: strings.TrimSpace(req.LocationInWorkshop),
				Notes:              strings.TrimSpace(req.Notes),
				CreatedAt:          now,
				UpdatedAt:          now,
			}
			return s.repo.Insert(ctx, tx, &created)
		})
		if err == nil {
			return created, nil
		}
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordIdentifierConflict("material")
			s.log.Warn("material id conflict, retrying",
				zap.String("prefix", prefix),
				zap.Bool("serial_derived", useSerial),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return domain.Material{}, err
	}
	return domain.Material{}, identifier.ErrIdentifierConflict
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Material, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Material{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Material{}, err
	}
	if item == nil {
		return domain.Material{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Material, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return dereference(items), nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Material, error) {
	items, err := s.repo.ListLowStock(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return dereference(items), nil
}

func (s *Service) Lookup(ctx context.Context, scanned string) (domain.Material, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" {
		return domain.Material{}, domain.ErrInvalidID
	}

	// Label scanners emit "<material_id>|<serial_number>"; try each part.
	candidates := []string{scanned}
	if strings.Contains(scanned, "|") {
		candidates = strings.Split(scanned, "|")
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		item, err := s.repo.FindByMaterialID(ctx, s.db, candidate)
		if err != nil {
			return domain.Material{}, err
		}
		if item != nil {
			return *item, nil
		}
		item, err = s.repo.FindBySerialNumber(ctx, s.db, candidate)
		if err != nil {
			return domain.Material{}, err
		}
		if item != nil {
			return *item, nil
		}
	}
	return domain.Material{}, domain.ErrNotFound
}

func (s *Service) RecordEntry(ctx context.Context, req domain.RecordEntryRequest) (domain.MaterialEntry, error) {
	materialID, err := s.parseID(req.MaterialID)
	if err != nil {
		return domain.MaterialEntry{}, err
	}
	if !req.Quantity.IsPositive() {
		return domain.MaterialEntry{}, domain.ErrInvalidQuantity
	}
	if req.PricePerUnit.IsNegative() {
		return domain.MaterialEntry{}, domain.ErrInvalidPrice
	}

	material, err := s.repo.FindByID(ctx, s.db, materialID)
	if err != nil {
		return domain.MaterialEntry{}, err
	}
	if material == nil {
		return domain.MaterialEntry{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	purchaseDate := req.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = now
	}

	entry := domain.MaterialEntry{
		ID:           s.genID.Generate(),
		MaterialID:   materialID,
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		PurchaseDate: purchaseDate,
		SupplierName: strings.TrimSpace(req.SupplierName),
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertEntry(ctx, tx, &entry); err != nil {
			return err
		}
		return s.recalculate(ctx, tx, material)
	})
	if err != nil {
		return domain.MaterialEntry{}, err
	}

	s.metrics.RecordStockMovement("entry")
	return entry, nil
}

func (s *Service) UpdateEntry(ctx context.Context, req domain.UpdateEntryRequest) (domain.MaterialEntry, error) {
	entryID, err := s.parseID(req.EntryID)
	if err != nil {
		return domain.MaterialEntry{}, err
	}

	entry, err := s.repo.FindEntryByID(ctx, s.db, entryID)
	if err != nil {
		return domain.MaterialEntry{}, err
	}
	if entry == nil {
		return domain.MaterialEntry{}, domain.ErrNotFound
	}

	if req.Quantity != nil {
		if !req.Quantity.IsPositive() {
			return domain.MaterialEntry{}, domain.ErrInvalidQuantity
		}
		entry.Quantity = *req.Quantity
	}
	if req.PricePerUnit != nil {
		if req.PricePerUnit.IsNegative() {
			return domain.MaterialEntry{}, domain.ErrInvalidPrice
		}
		entry.PricePerUnit = *req.PricePerUnit
	}
	if req.Notes != nil {
		entry.Notes = strings.TrimSpace(*req.Notes)
	}
	entry.UpdatedAt = s.clock.Now()

	material, err := s.repo.FindByID(ctx, s.db, entry.MaterialID)
	if err != nil {
		return domain.MaterialEntry{}, err
	}
	if material == nil {
		return domain.MaterialEntry{}, domain.ErrNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.recalculate(ctx, tx, material)
	})
	if err != nil {
		return domain.MaterialEntry{}, err
	}
	return *entry, nil
}

func (s *Service) DeleteEntry(ctx context.Context, entryID string) error {
	parsed, err := s.parseID(entryID)
	if err != nil {
		return err
	}

	entry, err := s.repo.FindEntryByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrNotFound
	}

	material, err := s.repo.FindByID(ctx, s.db, entry.MaterialID)
	if err != nil {
		return err
	}
	if material == nil {
		return domain.ErrNotFound
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteEntry(ctx, tx, parsed); err != nil {
			return err
		}
		return s.recalculate(ctx, tx, material)
	})
}

func (s *Service) RecordTransaction(ctx context.Context, req domain.RecordTransactionRequest) (domain.MaterialTransaction, error) {
	materialID, err := s.parseID(req.MaterialID)
	if err != nil {
		return domain.MaterialTransaction{}, err
	}
	if !req.Quantity.IsPositive() {
		return domain.MaterialTransaction{}, domain.ErrInvalidQuantity
	}
	switch req.Type {
	case domain.TransactionConsumption, domain.TransactionReturn:
	default:
		return domain.MaterialTransaction{}, domain.ErrInvalidType
	}

	material, err := s.repo.FindByID(ctx, s.db, materialID)
	if err != nil {
		return domain.MaterialTransaction{}, err
	}
	if material == nil {
		return domain.MaterialTransaction{}, domain.ErrNotFound
	}

	transaction := domain.MaterialTransaction{
		ID:              s.genID.Generate(),
		MaterialID:      materialID,
		Quantity:        req.Quantity,
		TransactionType: req.Type,
		TransactionDate: s.clock.Now(),
		JobReference:    strings.TrimSpace(req.JobReference),
		OperatorName:    strings.TrimSpace(req.OperatorName),
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       s.clock.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Type == domain.TransactionConsumption {
			// The guard makes the decrement conditional on sufficient stock,
			// so two concurrent consumers cannot drive the balance negative.
			ok, err := s.repo.AdjustStock(ctx, tx, materialID, req.Quantity.Neg(), &req.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInsufficientStock
			}
		} else {
			if _, err := s.repo.AdjustStock(ctx, tx, materialID, req.Quantity, nil); err != nil {
				return err
			}
		}
		return s.repo.InsertTransaction(ctx, tx, &transaction)
	})
	if err != nil {
		return domain.MaterialTransaction{}, err
	}

	s.metrics.RecordStockMovement(string(req.Type))
	return transaction, nil
}

func (s *Service) ConsumeForJob(ctx context.Context, req domain.JobUsageRequest) (domain.MaterialTransaction, error) {
	return s.RecordTransaction(ctx, domain.RecordTransactionRequest{
		MaterialID:   req.MaterialID,
		Quantity:     req.Quantity,
		Type:         domain.TransactionConsumption,
		JobReference: req.JobReference,
		OperatorName: req.OperatorName,
		Notes:        req.Notes,
	})
}

func (s *Service) ReturnForJob(ctx context.Context, req domain.JobUsageRequest) (domain.MaterialTransaction, error) {
	return s.RecordTransaction(ctx, domain.RecordTransactionRequest{
		MaterialID:   req.MaterialID,
		Quantity:     req.Quantity,
		Type:         domain.TransactionReturn,
		JobReference: req.JobReference,
		OperatorName: req.OperatorName,
		Notes:        req.Notes,
	})
}

func (s *Service) Recalculate(ctx context.Context, materialID string) (domain.Material, error) {
	parsed, err := s.parseID(materialID)
	if err != nil {
		return domain.Material{}, err
	}

	material, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Material{}, err
	}
	if material == nil {
		return domain.Material{}, domain.ErrNotFound
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.recalculate(ctx, tx, material)
	})
	if err != nil {
		return domain.Material{}, err
	}
	return *material, nil
}

// recalculate replays the full history: stock is entries minus consumption
// plus returns, price is the purchase-weighted average across entries.
func (s *Service) recalculate(ctx context.Context, tx *gorm.DB, material *domain.Material) error {
	entries, err := s.repo.ListEntries(ctx, tx, material.ID)
	if err != nil {
		return err
	}
	transactions, err := s.repo.ListTransactions(ctx, tx, material.ID)
	if err != nil {
		return err
	}

	stock := decimal.Zero
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, entry := range entries {
		stock = stock.Add(entry.Quantity)
		totalQty = totalQty.Add(entry.Quantity)
		totalValue = totalValue.Add(entry.Quantity.Mul(entry.PricePerUnit))
	}
	for _, transaction := range transactions {
		switch transaction.TransactionType {
		case domain.TransactionConsumption:
			stock = stock.Sub(transaction.Quantity)
		case domain.TransactionReturn:
			stock = stock.Add(transaction.Quantity)
		}
	}

	material.CurrentStock = stock
	if totalQty.IsPositive() {
		average := totalValue.DivRound(totalQty, 2)
		material.PricePerUnit = &average
	} else {
		material.PricePerUnit = nil
	}
	material.UpdatedAt = s.clock.Now()

	return s.repo.Update(ctx, tx, material)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func dereference(items []*domain.Material) []domain.Material {
	materials := make([]domain.Material, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		materials = append(materials, *item)
	}
	return materials
}
