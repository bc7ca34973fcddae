// Package report renders workshop data into xlsx workbooks for the ops CLI
// and the monthly bookkeeping handover.
package report

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	machinedomain "github.com/makerbench/makerbench/internal/machine/domain"
	materialdomain "github.com/makerbench/makerbench/internal/material/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	// Stock writes one row per material with its current balance, ledger
	// price, stock value and low-stock flag.
	Stock(ctx context.Context, w io.Writer) error

	// MachineUsage writes one row per machine aggregating finished usage
	// sessions whose start time falls in [from, to).
	MachineUsage(ctx context.Context, w io.Writer, from, to time.Time) error

	// JobCosts writes one row per non-personal job with its cost rollup,
	// billing state and profit margin.
	JobCosts(ctx context.Context, w io.Writer) error
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) Service {
	return &service{
		db:  p.DB,
		log: p.Log.Named("report.service"),
	}
}

func (s *service) Stock(ctx context.Context, w io.Writer) error {
	var materials []materialdomain.Material
	err := s.db.WithContext(ctx).
		Order("material_id ASC").
		Find(&materials).Error
	if err != nil {
		return err
	}

	headers := []string{"Material ID", "Name", "Serial Number", "Unit", "Current Stock", "Price Per Unit", "Stock Value", "Low Stock"}
	rows := make([][]string, 0, len(materials))
	for _, m := range materials {
		value := ""
		price := ""
		if m.PricePerUnit != nil {
			price = m.PricePerUnit.StringFixed(2)
			value = m.CurrentStock.Mul(*m.PricePerUnit).StringFixed(2)
		}
		low := ""
		if m.IsLowStock() {
			low = "LOW"
		}
		rows = append(rows, []string{
			m.MaterialID, m.Name, m.SerialNumber, m.UnitOfMeasurement,
			m.CurrentStock.StringFixed(2), price, value, low,
		})
	}

	s.log.Info("stock report rendered", zap.Int("materials", len(rows)))
	return writeSheet(w, "Stock", headers, rows)
}

func (s *service) MachineUsage(ctx context.Context, w io.Writer, from, to time.Time) error {
	var machines []machinedomain.Machine
	err := s.db.WithContext(ctx).
		Order("machine_id ASC").
		Find(&machines).Error
	if err != nil {
		return err
	}

	var usages []jobdomain.JobMachine
	err = s.db.WithContext(ctx).
		Where("is_active = ? AND start_time >= ? AND start_time < ?", false, from, to).
		Find(&usages).Error
	if err != nil {
		return err
	}

	type bucket struct {
		sessions int
		minutes  int
		cost     decimal.Decimal
	}
	byMachine := make(map[snowflake.ID]*bucket)
	for _, u := range usages {
		b := byMachine[u.MachineID]
		if b == nil {
			b = &bucket{}
			byMachine[u.MachineID] = b
		}
		b.sessions++
		b.minutes += u.SetupTime + u.OperationTime + u.CleanupTime
		if u.TotalCost != nil {
			b.cost = b.cost.Add(*u.TotalCost)
		}
	}

	headers := []string{"Machine ID", "Name", "Status", "Sessions", "Total Minutes", "Total Cost"}
	rows := make([][]string, 0, len(machines))
	for _, m := range machines {
		b := byMachine[m.ID]
		if b == nil {
			b = &bucket{}
		}
		rows = append(rows, []string{
			m.MachineID, m.Name, string(m.Status),
			decimal.NewFromInt(int64(b.sessions)).String(),
			decimal.NewFromInt(int64(b.minutes)).String(),
			b.cost.StringFixed(2),
		})
	}

	s.log.Info("machine usage report rendered",
		zap.Int("machines", len(rows)),
		zap.Int("sessions", len(usages)))
	return writeSheet(w, "Machine Usage", headers, rows)
}

func (s *service) JobCosts(ctx context.Context, w io.Writer) error {
	var jobs []jobdomain.Job
	err := s.db.WithContext(ctx).
		Where("is_personal = ?", false).
		Order("job_id ASC").
		Find(&jobs).Error
	if err != nil {
		return err
	}

	var statuses []jobdomain.JobStatus
	if err := s.db.WithContext(ctx).Find(&statuses).Error; err != nil {
		return err
	}
	statusName := make(map[snowflake.ID]string, len(statuses))
	for _, st := range statuses {
		statusName[st.ID] = st.Name
	}

	var financials []jobdomain.JobFinancial
	if err := s.db.WithContext(ctx).Find(&financials).Error; err != nil {
		return err
	}
	byJob := make(map[snowflake.ID]jobdomain.JobFinancial, len(financials))
	for _, f := range financials {
		byJob[f.JobID] = f
	}

	headers := []string{"Job ID", "Project", "Status", "Material Cost", "Machine Cost", "Labor Cost", "Total Cost", "Quoted", "Billed", "Billing Status", "Profit Margin %"}
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		f, ok := byJob[j.ID]
		if !ok {
			// Jobs without bookings have no financial row yet.
			rows = append(rows, []string{j.JobID, j.ProjectName, statusName[j.StatusID], "", "", "", "", "", "", "", ""})
			continue
		}
		quoted := ""
		if f.QuotedAmount != nil {
			quoted = f.QuotedAmount.StringFixed(2)
		}
		margin := ""
		if m := f.ProfitMargin(); m != nil {
			margin = m.StringFixed(2)
		}
		rows = append(rows, []string{
			j.JobID, j.ProjectName, statusName[j.StatusID],
			f.MaterialCost.StringFixed(2), f.MachineCost.StringFixed(2), f.LaborCost.StringFixed(2),
			f.TotalCost.StringFixed(2), quoted, f.BilledAmount.StringFixed(2),
			string(f.BillingStatus), margin,
		})
	}

	s.log.Info("job cost report rendered", zap.Int("jobs", len(rows)))
	return writeSheet(w, "Job Costs", headers, rows)
}

// writeSheet renders a single-sheet workbook with a bold header row.
func writeSheet(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 16); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.Write(w)
}
