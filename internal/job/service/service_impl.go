package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/job/costing"
	"github.com/makerbench/makerbench/internal/job/domain"
	machinedomain "github.com/makerbench/makerbench/internal/machine/domain"
	materialdomain "github.com/makerbench/makerbench/internal/material/domain"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	operatordomain "github.com/makerbench/makerbench/internal/operator/domain"
	"github.com/makerbench/makerbench/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Alloc    *identifier.Allocator
	Metrics  *metrics.Metrics
	Repo     domain.Repository
	Costing  costing.Service
	Material materialdomain.Service
	Machine  machinedomain.Service
	Operator operatordomain.Service
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	alloc    *identifier.Allocator
	metrics  *metrics.Metrics
	repo     domain.Repository
	costing  costing.Service
	material materialdomain.Service
	machine  machinedomain.Service
	operator operatordomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Config,
		db:       p.DB,
		log:      p.Log.Named("job.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		alloc:    p.Alloc,
		metrics:  p.Metrics,
		repo:     p.Repo,
		costing:  p.Costing,
		material: p.Material,
		machine:  p.Machine,
		operator: p.Operator,
	}
}

func (s *Service) CreateStatus(ctx context.Context, req domain.CreateStatusRequest) (domain.JobStatus, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.JobStatus{}, domain.ErrInvalidName
	}

	color := strings.TrimSpace(req.ColorCode)
	if color == "" {
		color = "#cccccc"
	}
	status := domain.JobStatus{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		ColorCode:   color,
		SortOrder:   req.SortOrder,
	}
	if err := s.repo.InsertStatus(ctx, s.db, &status); err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindStatusByName(ctx, s.db, name)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.JobStatus{}, err
	}
	return status, nil
}

func (s *Service) Statuses(ctx context.Context) ([]domain.JobStatus, error) {
	items, err := s.repo.ListStatuses(ctx, s.db)
	if err != nil {
		return nil, err
	}

	statuses := make([]domain.JobStatus, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		statuses = append(statuses, *item)
	}
	return statuses, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateJobRequest) (domain.Job, error) {
	projectName := strings.TrimSpace(req.ProjectName)
	if projectName == "" {
		return domain.Job{}, domain.ErrInvalidName
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	switch priority {
	case domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh, domain.PriorityUrgent:
	default:
		return domain.Job{}, domain.ErrInvalidPriority
	}

	status, err := s.resolveStatus(ctx, req.StatusName)
	if err != nil {
		return domain.Job{}, err
	}

	var clientID *snowflake.ID
	if strings.TrimSpace(req.ClientID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
		if err != nil || parsed == 0 {
			return domain.Job{}, domain.ErrInvalidID
		}
		clientID = &parsed
	}

	build := func(jobID string) domain.Job {
		now := s.clock.Now()
		return domain.Job{
			ID:          s.genID.Generate(),
			JobID:       jobID,
			ProjectName: projectName,
			ClientID:    clientID,
			Description: strings.TrimSpace(req.Description),
			StatusID:    status.ID,
			Priority:    priority,
			Deadline:    req.Deadline,
			IsPersonal:  req.IsPersonal,
			IsGeneral:   req.IsGeneral,
			OwnerID:     req.OwnerID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	// A caller-supplied identifier (personal jobs) bypasses allocation.
	if explicit := strings.TrimSpace(req.JobID); explicit != "" {
		job := build(explicit)
		if err := s.repo.Insert(ctx, s.db, &job); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.Job{}, identifier.ErrIdentifierConflict
			}
			return domain.Job{}, err
		}
		return job, nil
	}

	prefix := identifier.JobPrefix(identifier.Year(s.clock.Now()))

	var created domain.Job
	attempts := s.cfg.IdentifierRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			jobID, err := s.alloc.Next(ctx, tx, "jobs", "job_id", prefix)
			if err != nil {
				return err
			}
			created = build(jobID)
			return s.repo.Insert(ctx, tx, &created)
		})
		if err == nil {
			return created, nil
		}
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordIdentifierConflict("job")
			s.log.Warn("job id conflict, retrying",
				zap.String("prefix", prefix),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return domain.Job{}, err
	}
	return domain.Job{}, identifier.ErrIdentifierConflict
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Job, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Job{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Job{}, err
	}
	if item == nil {
		return domain.Job{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByJobID(ctx context.Context, jobID string) (domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return domain.Job{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindByJobID(ctx, s.db, jobID)
	if err != nil {
		return domain.Job{}, err
	}
	if item == nil {
		return domain.Job{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListJobRequest) ([]domain.Job, error) {
	filter := domain.ListJobFilter{Priority: req.Priority}
	if name := strings.TrimSpace(req.StatusName); name != "" {
		status, err := s.repo.FindStatusByName(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		if status == nil {
			return nil, domain.ErrInvalidStatus
		}
		filter.StatusID = status.ID
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return nil, domain.ErrInvalidID
		}
		filter.ClientID = parsed
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		jobs = append(jobs, *item)
	}
	return jobs, nil
}

func (s *Service) SetStatus(ctx context.Context, id, statusName, changedBy string) (domain.Job, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Job{}, err
	}
	if job == nil {
		return domain.Job{}, domain.ErrNotFound
	}

	status, err := s.repo.FindStatusByName(ctx, s.db, strings.TrimSpace(statusName))
	if err != nil {
		return domain.Job{}, err
	}
	if status == nil {
		return domain.Job{}, domain.ErrInvalidStatus
	}
	if status.ID == job.StatusID {
		return *job, nil
	}

	previous, err := s.repo.FindStatusByID(ctx, s.db, job.StatusID)
	if err != nil {
		return domain.Job{}, err
	}

	job.StatusID = status.ID
	job.UpdatedAt = s.clock.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, job); err != nil {
			return err
		}
		return s.logStatusChange(ctx, tx, job, previous, status, changedBy)
	})
	if err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

func (s *Service) SetPercentComplete(ctx context.Context, id string, percent int) (domain.Job, error) {
	if percent < 0 || percent > 100 {
		return domain.Job{}, domain.ErrInvalidPercent
	}

	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Job{}, err
	}
	job, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Job{}, err
	}
	if job == nil {
		return domain.Job{}, domain.ErrNotFound
	}

	job.PercentComplete = percent
	job.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, job); err != nil {
		return domain.Job{}, err
	}
	return *job, nil
}

// Delete refuses while any staff settings row points at the job; routing
// state must move off a job before it disappears.
func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}
	job, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if job == nil {
		return domain.ErrNotFound
	}

	references, err := s.repo.CountStaffReferences(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if references > 0 {
		return domain.ErrJobInUse
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, parsed)
	})
}

func (s *Service) AddMaterial(ctx context.Context, req domain.AddMaterialRequest) (domain.JobMaterial, error) {
	if !req.Quantity.IsPositive() {
		return domain.JobMaterial{}, domain.ErrInvalidQuantity
	}
	result := req.Result
	if result == "" {
		result = domain.ResultSuccess
	}
	switch result {
	case domain.ResultSuccess, domain.ResultScrap, domain.ResultFailed, domain.ResultReturned:
	default:
		return domain.JobMaterial{}, domain.ErrInvalidResult
	}

	jobID, err := s.parseID(req.JobID)
	if err != nil {
		return domain.JobMaterial{}, err
	}
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return domain.JobMaterial{}, err
	}
	if job == nil {
		return domain.JobMaterial{}, domain.ErrNotFound
	}

	material, err := s.material.GetByID(ctx, req.MaterialID)
	if err != nil {
		return domain.JobMaterial{}, err
	}

	unitPrice := req.UnitPrice
	if unitPrice == nil {
		unitPrice = material.PricePerUnit
	}

	// The guarded stock decrement runs first; a failed consumption must not
	// leave a usage row behind.
	_, err = s.material.ConsumeForJob(ctx, materialdomain.JobUsageRequest{
		MaterialID:   material.ID.String(),
		Quantity:     req.Quantity,
		JobReference: job.JobID,
		OperatorName: strings.TrimSpace(req.AddedBy),
		Notes:        strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.JobMaterial{}, err
	}

	usage := domain.JobMaterial{
		ID:         s.genID.Generate(),
		JobID:      jobID,
		MaterialID: material.ID,
		Quantity:   req.Quantity,
		UnitPrice:  unitPrice,
		DateUsed:   s.clock.Now(),
		AddedBy:    strings.TrimSpace(req.AddedBy),
		Result:     result,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertMaterial(ctx, s.db, &usage); err != nil {
		return domain.JobMaterial{}, err
	}

	s.logUsageActivity(ctx, job, usage.AddedBy, domain.ActivityMaterialUsage,
		"used "+req.Quantity.String()+" "+material.UnitOfMeasurement+" of "+material.Name,
		datatypes.JSONMap{
			"material_id": material.MaterialID,
			"quantity":    req.Quantity.String(),
			"result":      string(result),
		})

	if _, err := s.costing.Recompute(ctx, jobID); err != nil {
		return domain.JobMaterial{}, err
	}
	return usage, nil
}

func (s *Service) ReturnMaterial(ctx context.Context, req domain.ReturnMaterialRequest) (domain.JobMaterial, error) {
	if !req.Quantity.IsPositive() {
		return domain.JobMaterial{}, domain.ErrInvalidQuantity
	}

	usageID, err := s.parseID(req.UsageID)
	if err != nil {
		return domain.JobMaterial{}, err
	}
	usage, err := s.repo.FindMaterialByID(ctx, s.db, usageID)
	if err != nil {
		return domain.JobMaterial{}, err
	}
	if usage == nil {
		return domain.JobMaterial{}, domain.ErrNotFound
	}
	if usage.Result == domain.ResultReturned || !usage.Quantity.IsPositive() {
		return domain.JobMaterial{}, domain.ErrAlreadyReturned
	}
	if req.Quantity.GreaterThan(usage.Quantity) {
		return domain.JobMaterial{}, domain.ErrInvalidQuantity
	}

	job, err := s.repo.FindByID(ctx, s.db, usage.JobID)
	if err != nil {
		return domain.JobMaterial{}, err
	}
	if job == nil {
		return domain.JobMaterial{}, domain.ErrNotFound
	}

	_, err = s.material.ReturnForJob(ctx, materialdomain.JobUsageRequest{
		MaterialID:   usage.MaterialID.String(),
		Quantity:     req.Quantity,
		JobReference: job.JobID,
		OperatorName: strings.TrimSpace(req.Operator),
	})
	if err != nil {
		return domain.JobMaterial{}, err
	}

	usage.Quantity = usage.Quantity.Sub(req.Quantity)
	if usage.Quantity.IsZero() {
		usage.Result = domain.ResultReturned
	}
	if err := s.repo.UpdateMaterial(ctx, s.db, usage); err != nil {
		return domain.JobMaterial{}, err
	}

	if _, err := s.costing.Recompute(ctx, usage.JobID); err != nil {
		return domain.JobMaterial{}, err
	}
	return *usage, nil
}

func (s *Service) Materials(ctx context.Context, jobID string) ([]domain.JobMaterial, error) {
	parsed, err := s.parseID(jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListMaterials(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	usages := make([]domain.JobMaterial, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		usages = append(usages, *item)
	}
	return usages, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, usageID string) error {
	parsed, err := s.parseID(usageID)
	if err != nil {
		return err
	}
	usage, err := s.repo.FindMaterialByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if usage == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.DeleteMaterial(ctx, s.db, parsed); err != nil {
		return err
	}
	_, err = s.costing.Recompute(ctx, usage.JobID)
	return err
}

func (s *Service) StartUsage(ctx context.Context, req domain.StartUsageRequest) (domain.JobMachine, error) {
	jobID, err := s.parseID(req.JobID)
	if err != nil {
		return domain.JobMachine{}, err
	}
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return domain.JobMachine{}, err
	}
	if job == nil {
		return domain.JobMachine{}, domain.ErrNotFound
	}

	machine, err := s.machine.GetByID(ctx, req.MachineID)
	if err != nil {
		return domain.JobMachine{}, err
	}

	now := s.clock.Now()
	rate := machine.EffectiveHourlyRate()
	setupTime := 0
	if machine.SetupTime != nil {
		setupTime = *machine.SetupTime
	}
	setupCost := minutesCost(setupTime, machine.EffectiveSetupRate())

	usage := domain.JobMachine{
		ID:           s.genID.Generate(),
		JobID:        jobID,
		MachineID:    machine.ID,
		StartTime:    now,
		SetupTime:    setupTime,
		HourlyRate:   &rate,
		SetupCost:    &setupCost,
		OperatorName: strings.TrimSpace(req.OperatorName),
		IsActive:     true,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
	}
	if err := s.repo.InsertMachine(ctx, s.db, &usage); err != nil {
		return domain.JobMachine{}, err
	}

	s.logUsageActivity(ctx, job, usage.OperatorName, domain.ActivityMachineUsage,
		"started "+machine.Name,
		datatypes.JSONMap{"machine_id": machine.MachineID})

	if _, err := s.costing.Recompute(ctx, jobID); err != nil {
		return domain.JobMachine{}, err
	}
	return usage, nil
}

func (s *Service) EndUsage(ctx context.Context, req domain.EndUsageRequest) (domain.JobMachine, error) {
	usageID, err := s.parseID(req.UsageID)
	if err != nil {
		return domain.JobMachine{}, err
	}
	usage, err := s.repo.FindMachineUsageByID(ctx, s.db, usageID)
	if err != nil {
		return domain.JobMachine{}, err
	}
	if usage == nil {
		return domain.JobMachine{}, domain.ErrNotFound
	}
	if !usage.IsActive {
		return domain.JobMachine{}, domain.ErrSessionEnded
	}

	machine, err := s.machine.GetByID(ctx, usage.MachineID.String())
	if err != nil {
		return domain.JobMachine{}, err
	}

	now := s.clock.Now()
	operationMinutes := int(now.Sub(usage.StartTime).Minutes())
	if operationMinutes < 0 {
		operationMinutes = 0
	}

	if req.SetupTime != nil {
		usage.SetupTime = *req.SetupTime
	}
	cleanupTime := 0
	if machine.CleanupTime != nil {
		cleanupTime = *machine.CleanupTime
	}
	if req.CleanupTime != nil {
		cleanupTime = *req.CleanupTime
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		usage.Notes = notes
	}

	rate := machine.EffectiveHourlyRate()
	setupCost := minutesCost(usage.SetupTime, machine.EffectiveSetupRate())
	operationCost := minutesCost(operationMinutes, rate)
	cleanupCost := minutesCost(cleanupTime, machine.EffectiveCleanupRate())
	totalCost := setupCost.Add(operationCost).Add(cleanupCost).Round(2)

	usage.EndTime = &now
	usage.OperationTime = operationMinutes
	usage.CleanupTime = cleanupTime
	usage.HourlyRate = &rate
	usage.SetupCost = &setupCost
	usage.OperationCost = &operationCost
	usage.CleanupCost = &cleanupCost
	usage.TotalCost = &totalCost
	usage.IsActive = false

	if err := s.repo.UpdateMachine(ctx, s.db, usage); err != nil {
		return domain.JobMachine{}, err
	}
	if _, err := s.costing.Recompute(ctx, usage.JobID); err != nil {
		return domain.JobMachine{}, err
	}
	return *usage, nil
}

func (s *Service) ActiveUsage(ctx context.Context, jobID, machineID string) (domain.JobMachine, error) {
	parsedJob, err := s.parseID(jobID)
	if err != nil {
		return domain.JobMachine{}, err
	}
	parsedMachine, err := s.parseID(machineID)
	if err != nil {
		return domain.JobMachine{}, err
	}

	usage, err := s.repo.FindActiveMachineUsage(ctx, s.db, parsedJob, parsedMachine)
	if err != nil {
		return domain.JobMachine{}, err
	}
	if usage == nil {
		return domain.JobMachine{}, domain.ErrNotFound
	}
	return *usage, nil
}

func (s *Service) MachineUsages(ctx context.Context, jobID string) ([]domain.JobMachine, error) {
	parsed, err := s.parseID(jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListMachines(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	usages := make([]domain.JobMachine, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		usages = append(usages, *item)
	}
	return usages, nil
}

func (s *Service) AddLabor(ctx context.Context, req domain.AddLaborRequest) (domain.JobLabor, error) {
	if !req.Hours.IsPositive() {
		return domain.JobLabor{}, domain.ErrInvalidQuantity
	}
	laborType := strings.TrimSpace(req.LaborType)
	if laborType == "" {
		return domain.JobLabor{}, domain.ErrInvalidName
	}

	jobID, err := s.parseID(req.JobID)
	if err != nil {
		return domain.JobLabor{}, err
	}
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return domain.JobLabor{}, err
	}
	if job == nil {
		return domain.JobLabor{}, domain.ErrNotFound
	}

	worker, err := s.operator.GetByUsername(ctx, req.Username)
	if err != nil {
		return domain.JobLabor{}, err
	}

	var rate decimal.Decimal
	if req.HourlyRate != nil {
		rate = *req.HourlyRate
	} else {
		rate, err = s.operator.EffectiveHourlyRate(ctx, req.Username)
		if err != nil {
			return domain.JobLabor{}, err
		}
	}

	workDate := req.WorkDate
	if workDate.IsZero() {
		workDate = s.clock.Now()
	}

	labor := domain.JobLabor{
		ID:          s.genID.Generate(),
		JobID:       jobID,
		OperatorID:  worker.ID,
		LaborType:   laborType,
		HourlyRate:  rate,
		WorkDate:    workDate,
		Hours:       req.Hours,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertLabor(ctx, s.db, &labor); err != nil {
		return domain.JobLabor{}, err
	}
	if _, err := s.costing.Recompute(ctx, jobID); err != nil {
		return domain.JobLabor{}, err
	}
	return labor, nil
}

func (s *Service) Labors(ctx context.Context, jobID string) ([]domain.JobLabor, error) {
	parsed, err := s.parseID(jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLabors(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	labors := make([]domain.JobLabor, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		labors = append(labors, *item)
	}
	return labors, nil
}

func (s *Service) DeleteLabor(ctx context.Context, laborID string) error {
	parsed, err := s.parseID(laborID)
	if err != nil {
		return err
	}
	labor, err := s.repo.FindLaborByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if labor == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.DeleteLabor(ctx, s.db, parsed); err != nil {
		return err
	}
	_, err = s.costing.Recompute(ctx, labor.JobID)
	return err
}

func (s *Service) LogActivity(ctx context.Context, entry domain.JobActivityLog) error {
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	if err := s.repo.InsertActivityLog(ctx, s.db, &entry); err != nil {
		return err
	}
	s.metrics.RecordJobActivity(string(entry.ActivityType))
	return nil
}

func (s *Service) ActivityLogs(ctx context.Context, jobID string) ([]domain.JobActivityLog, error) {
	parsed, err := s.parseID(jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListActivityLogs(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.JobActivityLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

// resolveStatus falls back to the lowest sort order when no name is given.
func (s *Service) resolveStatus(ctx context.Context, name string) (*domain.JobStatus, error) {
	if name = strings.TrimSpace(name); name != "" {
		status, err := s.repo.FindStatusByName(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		if status == nil {
			return nil, domain.ErrInvalidStatus
		}
		return status, nil
	}

	statuses, err := s.repo.ListStatuses(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, domain.ErrInvalidStatus
	}
	return statuses[0], nil
}

func (s *Service) logStatusChange(ctx context.Context, tx *gorm.DB, job *domain.Job, previous, next *domain.JobStatus, changedBy string) error {
	worker, err := s.operator.GetByUsername(ctx, changedBy)
	if err != nil {
		// Status changes from batch tooling have no operator to attribute.
		return nil
	}

	previousName := ""
	if previous != nil {
		previousName = previous.Name
	}
	entry := domain.JobActivityLog{
		ID:           s.genID.Generate(),
		OperatorID:   worker.ID,
		JobID:        job.ID,
		ActivityType: domain.ActivityStatusChange,
		Description:  "status changed to " + next.Name,
		Metadata: datatypes.JSONMap{
			"from": previousName,
			"to":   next.Name,
		},
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertActivityLog(ctx, tx, &entry); err != nil {
		return err
	}
	s.metrics.RecordJobActivity(string(domain.ActivityStatusChange))
	return nil
}

func (s *Service) logUsageActivity(ctx context.Context, job *domain.Job, username string, activity domain.ActivityType, description string, metadata datatypes.JSONMap) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return
	}

	entry := domain.JobActivityLog{
		ID:           s.genID.Generate(),
		OperatorID:   worker.ID,
		JobID:        job.ID,
		ActivityType: activity,
		Description:  description,
		Metadata:     metadata,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertActivityLog(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write activity log", zap.Error(err))
		return
	}
	s.metrics.RecordJobActivity(string(activity))
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func minutesCost(minutes int, rate decimal.Decimal) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(minutes)).
		Div(decimal.NewFromInt(60)).
		Mul(rate).
		Round(2)
}
