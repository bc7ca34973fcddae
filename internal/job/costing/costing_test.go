package costing

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/job/domain"
	"github.com/makerbench/makerbench/internal/job/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	svc   Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	job   domain.Job
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:costing_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&domain.JobStatus{},
		&domain.Job{},
		&domain.JobMaterial{},
		&domain.JobMachine{},
		&domain.JobLabor{},
		&domain.JobFinancial{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Config: cfg,
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fake,
		Repo:   repository.Provide(),
	})

	h := &harness{svc: svc, db: conn, node: node, clock: fake}

	status := domain.JobStatus{ID: node.Generate(), Name: "In Progress"}
	require.NoError(t, conn.Create(&status).Error)
	h.job = domain.Job{
		ID:          node.Generate(),
		JobID:       "JOB-2025-0001",
		ProjectName: "Bracket run",
		StatusID:    status.ID,
		Priority:    domain.PriorityNormal,
	}
	require.NoError(t, conn.Create(&h.job).Error)
	return h
}

func (h *harness) addMaterial(t *testing.T, qty, price string, result domain.UsageResult) {
	t.Helper()
	unitPrice := decimal.RequireFromString(price)
	require.NoError(t, h.db.Create(&domain.JobMaterial{
		ID:         h.node.Generate(),
		JobID:      h.job.ID,
		MaterialID: h.node.Generate(),
		Quantity:   decimal.RequireFromString(qty),
		UnitPrice:  &unitPrice,
		DateUsed:   h.clock.Now(),
		Result:     result,
	}).Error)
}

func (h *harness) addLabor(t *testing.T, hours, rate string) {
	t.Helper()
	require.NoError(t, h.db.Create(&domain.JobLabor{
		ID:         h.node.Generate(),
		JobID:      h.job.ID,
		OperatorID: h.node.Generate(),
		LaborType:  "assembly",
		HourlyRate: decimal.RequireFromString(rate),
		WorkDate:   h.clock.Now(),
		Hours:      decimal.RequireFromString(hours),
	}).Error)
}

func (h *harness) addFinishedMachineUsage(t *testing.T, total string) {
	t.Helper()
	end := h.clock.Now()
	totalCost := decimal.RequireFromString(total)
	require.NoError(t, h.db.Create(&domain.JobMachine{
		ID:        h.node.Generate(),
		JobID:     h.job.ID,
		MachineID: h.node.Generate(),
		StartTime: end.Add(-time.Hour),
		EndTime:   &end,
		TotalCost: &totalCost,
		IsActive:  false,
	}).Error)
}

func TestRecomputeSumsComponents(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})

	h.addMaterial(t, "10", "3.00", domain.ResultSuccess)
	h.addFinishedMachineUsage(t, "45.00")
	h.addLabor(t, "2", "50.00")

	financial, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)
	assert.True(t, financial.MaterialCost.Equal(decimal.RequireFromString("30.00")), "material %s", financial.MaterialCost)
	assert.True(t, financial.MachineCost.Equal(decimal.RequireFromString("45.00")), "machine %s", financial.MachineCost)
	assert.True(t, financial.LaborCost.Equal(decimal.RequireFromString("100.00")), "labor %s", financial.LaborCost)
	assert.True(t, financial.TotalCost.Equal(decimal.RequireFromString("175.00")), "total %s", financial.TotalCost)
	assert.Equal(t, domain.BillingNotBilled, financial.BillingStatus)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})
	h.addMaterial(t, "10", "3.00", domain.ResultSuccess)

	first, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)
	second, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.TotalCost.Equal(second.TotalCost))

	var count int64
	require.NoError(t, h.db.Model(&domain.JobFinancial{}).
		Where("job_id = ?", h.job.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecomputePreservesBillingFields(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})
	h.addMaterial(t, "10", "3.00", domain.ResultSuccess)

	_, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)

	quoted := decimal.RequireFromString("200.00")
	billed := decimal.RequireFromString("50.00")
	ref := "INV-77"
	_, err = h.svc.SetBilling(context.Background(), SetBillingRequest{
		JobID:            h.job.ID,
		QuotedAmount:     &quoted,
		BilledAmount:     &billed,
		InvoiceReference: &ref,
	})
	require.NoError(t, err)

	h.addLabor(t, "1", "60.00")
	financial, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)

	require.NotNil(t, financial.QuotedAmount)
	assert.True(t, financial.QuotedAmount.Equal(quoted))
	assert.True(t, financial.BilledAmount.Equal(billed))
	assert.Equal(t, "INV-77", financial.InvoiceReference)
	assert.Equal(t, domain.BillingPartiallyBilled, financial.BillingStatus)
}

func TestReturnedMaterialCostPolicy(t *testing.T) {
	setup := func(t *testing.T, costReturned bool) domain.JobFinancial {
		h := newHarness(t, config.Config{CostReturnedMaterials: costReturned})
		h.addMaterial(t, "10", "3.00", domain.ResultSuccess)
		h.addMaterial(t, "4", "5.00", domain.ResultReturned)
		financial, err := h.svc.Recompute(context.Background(), h.job.ID)
		require.NoError(t, err)
		return financial
	}

	withReturned := setup(t, true)
	assert.True(t, withReturned.MaterialCost.Equal(decimal.RequireFromString("50.00")), "material %s", withReturned.MaterialCost)

	withoutReturned := setup(t, false)
	assert.True(t, withoutReturned.MaterialCost.Equal(decimal.RequireFromString("30.00")), "material %s", withoutReturned.MaterialCost)
}

func TestInProgressMachineCostGrows(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})

	rate := decimal.RequireFromString("60.00")
	require.NoError(t, h.db.Create(&domain.JobMachine{
		ID:         h.node.Generate(),
		JobID:      h.job.ID,
		MachineID:  h.node.Generate(),
		StartTime:  h.clock.Now(),
		HourlyRate: &rate,
		IsActive:   true,
	}).Error)

	h.clock.Advance(30 * time.Minute)
	first, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)
	assert.True(t, first.MachineCost.Equal(decimal.RequireFromString("30.00")), "machine %s", first.MachineCost)

	h.clock.Advance(30 * time.Minute)
	second, err := h.svc.Recompute(context.Background(), h.job.ID)
	require.NoError(t, err)
	assert.True(t, second.MachineCost.Equal(decimal.RequireFromString("60.00")), "machine %s", second.MachineCost)
}

func TestBillingStatusDerivation(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})
	h.addLabor(t, "2", "50.00") // total cost 100

	cases := []struct {
		name   string
		quoted string
		billed string
		want   domain.BillingStatus
	}{
		{"zero billed", "", "0", domain.BillingNotBilled},
		{"below total cost baseline", "", "40", domain.BillingPartiallyBilled},
		{"meets total cost baseline", "", "100", domain.BillingFullyBilled},
		{"below quote", "150", "100", domain.BillingPartiallyBilled},
		{"meets quote", "150", "150", domain.BillingFullyBilled},
		{"exceeds quote", "150", "180", domain.BillingFullyBilled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := SetBillingRequest{JobID: h.job.ID}
			if tc.quoted != "" {
				quoted := decimal.RequireFromString(tc.quoted)
				req.QuotedAmount = &quoted
			} else {
				zero := decimal.Zero
				req.QuotedAmount = &zero
			}
			billed := decimal.RequireFromString(tc.billed)
			req.BilledAmount = &billed

			financial, err := h.svc.SetBilling(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, financial.BillingStatus)
		})
	}
}

func TestPaidOnlyExplicit(t *testing.T) {
	h := newHarness(t, config.Config{CostReturnedMaterials: true})
	h.addLabor(t, "1", "100.00")

	billed := decimal.RequireFromString("100.00")
	financial, err := h.svc.SetBilling(context.Background(), SetBillingRequest{
		JobID:        h.job.ID,
		BilledAmount: &billed,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BillingFullyBilled, financial.BillingStatus)

	financial, err = h.svc.MarkPaid(context.Background(), h.job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BillingPaid, financial.BillingStatus)
}

func TestProfitMargin(t *testing.T) {
	zero := decimal.Zero
	quoted := decimal.RequireFromString("150.00")

	noQuote := domain.JobFinancial{TotalCost: decimal.RequireFromString("100.00")}
	assert.Nil(t, noQuote.ProfitMargin())

	zeroQuote := domain.JobFinancial{QuotedAmount: &zero, TotalCost: decimal.RequireFromString("100.00")}
	assert.Nil(t, zeroQuote.ProfitMargin())

	freeJob := domain.JobFinancial{QuotedAmount: &quoted, TotalCost: decimal.Zero}
	require.NotNil(t, freeJob.ProfitMargin())
	assert.True(t, freeJob.ProfitMargin().Equal(decimal.NewFromInt(100)))

	standard := domain.JobFinancial{QuotedAmount: &quoted, TotalCost: decimal.RequireFromString("100.00")}
	margin := standard.ProfitMargin()
	require.NotNil(t, margin)
	assert.True(t, margin.Equal(decimal.RequireFromString("33.33")), "margin %s", margin)
}
