package costing

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/job/domain"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SetBillingRequest struct {
	JobID            snowflake.ID
	QuotedAmount     *decimal.Decimal
	BilledAmount     *decimal.Decimal
	InvoiceReference *string
}

// Service owns the job_financials row. Recompute writes the cost columns and
// never the billing columns; SetBilling writes the billing columns and
// re-derives the status.
type Service interface {
	Recompute(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error)
	Financial(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error)
	SetBilling(ctx context.Context, req SetBillingRequest) (domain.JobFinancial, error)
	MarkPaid(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error)
}

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Repo    domain.Repository
}

type service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
	repo    domain.Repository
}

func New(p Params) Service {
	return &service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("job.costing"),
		genID:   p.GenID,
		clock:   p.Clock,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *service) Recompute(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error) {
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return domain.JobFinancial{}, err
	}
	if job == nil {
		return domain.JobFinancial{}, domain.ErrNotFound
	}

	var result domain.JobFinancial
	err = s.db.Transaction(func(tx *gorm.DB) error {
		materialCost, err := s.materialCost(ctx, tx, jobID)
		if err != nil {
			return err
		}
		machineCost, err := s.machineCost(ctx, tx, jobID)
		if err != nil {
			return err
		}
		laborCost, err := s.laborCost(ctx, tx, jobID)
		if err != nil {
			return err
		}

		financial, err := s.repo.FindFinancial(ctx, tx, jobID)
		if err != nil {
			return err
		}
		isNew := financial == nil
		if isNew {
			financial = &domain.JobFinancial{
				ID:            s.genID.Generate(),
				JobID:         jobID,
				BillingStatus: domain.BillingNotBilled,
			}
		}

		financial.MaterialCost = materialCost
		financial.MachineCost = machineCost
		financial.LaborCost = laborCost
		financial.TotalCost = materialCost.
			Add(machineCost).
			Add(laborCost).
			Add(financial.AdditionalCosts).
			Round(2)
		financial.LastUpdated = s.clock.Now()

		if isNew {
			if err := s.repo.InsertFinancial(ctx, tx, financial); err != nil {
				return err
			}
		} else {
			if err := s.repo.UpdateFinancial(ctx, tx, financial); err != nil {
				return err
			}
		}
		result = *financial
		return nil
	})
	if err != nil {
		return domain.JobFinancial{}, err
	}

	s.metrics.RecordFinancialRecompute()
	return result, nil
}

func (s *service) Financial(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error) {
	financial, err := s.repo.FindFinancial(ctx, s.db, jobID)
	if err != nil {
		return domain.JobFinancial{}, err
	}
	if financial == nil {
		return s.Recompute(ctx, jobID)
	}
	return *financial, nil
}

func (s *service) SetBilling(ctx context.Context, req SetBillingRequest) (domain.JobFinancial, error) {
	financial, err := s.Financial(ctx, req.JobID)
	if err != nil {
		return domain.JobFinancial{}, err
	}

	if req.QuotedAmount != nil {
		financial.QuotedAmount = req.QuotedAmount
	}
	if req.BilledAmount != nil {
		financial.BilledAmount = *req.BilledAmount
	}
	if req.InvoiceReference != nil {
		financial.InvoiceReference = strings.TrimSpace(*req.InvoiceReference)
	}
	financial.BillingStatus = deriveBillingStatus(financial)
	financial.LastUpdated = s.clock.Now()

	if err := s.repo.UpdateFinancial(ctx, s.db, &financial); err != nil {
		return domain.JobFinancial{}, err
	}
	return financial, nil
}

// MarkPaid is the only path to the paid status; the derivation never
// produces it.
func (s *service) MarkPaid(ctx context.Context, jobID snowflake.ID) (domain.JobFinancial, error) {
	financial, err := s.Financial(ctx, jobID)
	if err != nil {
		return domain.JobFinancial{}, err
	}

	financial.BillingStatus = domain.BillingPaid
	financial.LastUpdated = s.clock.Now()
	if err := s.repo.UpdateFinancial(ctx, s.db, &financial); err != nil {
		return domain.JobFinancial{}, err
	}
	return financial, nil
}

func (s *service) materialCost(ctx context.Context, tx *gorm.DB, jobID snowflake.ID) (decimal.Decimal, error) {
	usages, err := s.repo.ListMaterials(ctx, tx, jobID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, usage := range usages {
		if !s.cfg.CostReturnedMaterials && usage.Result == domain.ResultReturned {
			continue
		}
		total = total.Add(usage.Cost())
	}
	return total.Round(2), nil
}

func (s *service) machineCost(ctx context.Context, tx *gorm.DB, jobID snowflake.ID) (decimal.Decimal, error) {
	usages, err := s.repo.ListMachines(ctx, tx, jobID)
	if err != nil {
		return decimal.Zero, err
	}

	now := s.clock.Now()
	total := decimal.Zero
	for _, usage := range usages {
		total = total.Add(machineUsageCost(usage, now))
	}
	return total.Round(2), nil
}

func (s *service) laborCost(ctx context.Context, tx *gorm.DB, jobID snowflake.ID) (decimal.Decimal, error) {
	labors, err := s.repo.ListLabors(ctx, tx, jobID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, labor := range labors {
		total = total.Add(labor.Cost())
	}
	return total.Round(2), nil
}

// machineUsageCost prices a usage row. Finished sessions carry their final
// costs; a running session is priced from its start to now, so the job's
// rollup grows while the machine runs.
func machineUsageCost(usage *domain.JobMachine, now time.Time) decimal.Decimal {
	if !usage.IsActive && usage.TotalCost != nil {
		return *usage.TotalCost
	}

	rate := decimal.Zero
	if usage.HourlyRate != nil {
		rate = *usage.HourlyRate
	}

	cost := decimal.Zero
	if usage.SetupCost != nil {
		cost = cost.Add(*usage.SetupCost)
	}

	end := now
	if usage.EndTime != nil {
		end = *usage.EndTime
	}
	if end.After(usage.StartTime) {
		minutes := decimal.NewFromFloat(end.Sub(usage.StartTime).Minutes())
		cost = cost.Add(minutes.Div(decimal.NewFromInt(60)).Mul(rate))
	}

	if usage.CleanupCost != nil {
		cost = cost.Add(*usage.CleanupCost)
	}
	return cost.Round(2)
}

func deriveBillingStatus(financial domain.JobFinancial) domain.BillingStatus {
	// A missing or zero quote falls back to the running total cost.
	baseline := financial.TotalCost
	if financial.QuotedAmount != nil && financial.QuotedAmount.IsPositive() {
		baseline = *financial.QuotedAmount
	}

	switch {
	case financial.BilledAmount.LessThanOrEqual(decimal.Zero):
		return domain.BillingNotBilled
	case financial.BilledAmount.LessThan(baseline):
		return domain.BillingPartiallyBilled
	default:
		return domain.BillingFullyBilled
	}
}
