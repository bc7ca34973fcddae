package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/activejob"
	"github.com/makerbench/makerbench/internal/client"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/job"
	"github.com/makerbench/makerbench/internal/job/costing"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	"github.com/makerbench/makerbench/internal/logger"
	"github.com/makerbench/makerbench/internal/machine"
	"github.com/makerbench/makerbench/internal/material"
	"github.com/makerbench/makerbench/internal/migration"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	"github.com/makerbench/makerbench/internal/operator"
	"github.com/makerbench/makerbench/internal/report"
	"github.com/makerbench/makerbench/internal/scan"
	"github.com/makerbench/makerbench/internal/seed"
	"github.com/makerbench/makerbench/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "makerbench",
		Short:         "Workshop job, stock and cost management",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newRecomputeCmd())
	root.AddCommand(newExportCmd())
	return root
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

// runApp starts a one-shot fx application around the given options and tears
// it down once the invocations finish.
func runApp(opts ...fx.Option) error {
	base := []fx.Option{
		fx.NopLogger,

		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		identifier.Module,

		operator.Module,
		client.Module,
		material.Module,
		machine.Module,
		job.Module,
		activejob.Module,
		scan.Module,
		report.Module,
	}

	app := fx.New(append(base, opts...)...)
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return app.Stop(stopCtx)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and seed the status vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(migration.Module)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default job statuses without running migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(fx.Invoke(func(conn *gorm.DB) error {
				return seed.EnsureJobStatuses(conn)
			}))
		},
	}
}

func newRecomputeCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "recompute [job-id...]",
		Short: "Rebuild the cost rollup for the given jobs, or all jobs with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass job identifiers or --all")
			}

			return runApp(fx.Invoke(func(log *zap.Logger, jobs jobdomain.Service, rollup costing.Service) error {
				ctx := cmd.Context()

				targets := args
				if all {
					listed, err := jobs.List(ctx, jobdomain.ListJobRequest{})
					if err != nil {
						return err
					}
					targets = targets[:0]
					for _, j := range listed {
						targets = append(targets, j.JobID)
					}
				}

				for _, jobID := range targets {
					j, err := jobs.GetByJobID(ctx, jobID)
					if err != nil {
						return fmt.Errorf("job %s: %w", jobID, err)
					}
					financial, err := rollup.Recompute(ctx, j.ID)
					if err != nil {
						return fmt.Errorf("recompute %s: %w", jobID, err)
					}
					log.Info("rollup rebuilt",
						zap.String("job_id", jobID),
						zap.String("total_cost", financial.TotalCost.StringFixed(2)))
				}
				return nil
			}))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "recompute every job")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export xlsx reports",
	}
	cmd.AddCommand(newExportStockCmd())
	cmd.AddCommand(newExportUsageCmd())
	cmd.AddCommand(newExportCostsCmd())
	return cmd
}

func newExportStockCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Export the material stock report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(fx.Invoke(func(log *zap.Logger, reports report.Service) error {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()

				if err := reports.Stock(cmd.Context(), f); err != nil {
					return err
				}
				log.Info("stock report written", zap.String("path", output))
				return nil
			}))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "stock.xlsx", "output file")
	return cmd
}

func newExportUsageCmd() *cobra.Command {
	var output, fromFlag, toFlag string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Export the machine usage report for a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := resolveWindow(fromFlag, toFlag)
			if err != nil {
				return err
			}

			return runApp(fx.Invoke(func(log *zap.Logger, reports report.Service) error {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()

				if err := reports.MachineUsage(cmd.Context(), f, from, to); err != nil {
					return err
				}
				log.Info("machine usage report written",
					zap.String("path", output),
					zap.Time("from", from),
					zap.Time("to", to))
				return nil
			}))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "usage.xlsx", "output file")
	cmd.Flags().StringVar(&fromFlag, "from", "", "window start (YYYY-MM-DD), defaults to the first of the current month")
	cmd.Flags().StringVar(&toFlag, "to", "", "window end (YYYY-MM-DD), exclusive, defaults to the first of the next month")
	return cmd
}

func newExportCostsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Export the job cost report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(fx.Invoke(func(log *zap.Logger, reports report.Service) error {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()

				if err := reports.JobCosts(cmd.Context(), f); err != nil {
					return err
				}
				log.Info("job cost report written", zap.String("path", output))
				return nil
			}))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "costs.xlsx", "output file")
	return cmd
}

// resolveWindow defaults to the current calendar month.
func resolveWindow(fromFlag, toFlag string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	var err error
	if fromFlag != "" {
		from, err = time.Parse("2006-01-02", fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --from: %w", err)
		}
	}
	if toFlag != "" {
		to, err = time.Parse("2006-01-02", toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --to: %w", err)
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return from, to, nil
}
