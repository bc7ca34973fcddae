// Package scan routes barcode and QR scans from the workshop floor. A scan
// never names a job: it lands on whatever job the scanning operator has
// active, falling back to their personal job.
package scan

import (
	"context"
	"errors"

	activejobdomain "github.com/makerbench/makerbench/internal/activejob/domain"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	machinedomain "github.com/makerbench/makerbench/internal/machine/domain"
	materialdomain "github.com/makerbench/makerbench/internal/material/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type MaterialScanRequest struct {
	Username   string
	Identifier string
	Quantity   decimal.Decimal
	Result     jobdomain.UsageResult
	Notes      string
}

type MachineScanRequest struct {
	Username   string
	Identifier string
	Notes      string
}

type Service interface {
	// MaterialScan consumes stock against the operator's active job and
	// records the usage row.
	MaterialScan(context.Context, MaterialScanRequest) (jobdomain.JobMaterial, error)

	// MachineScanStart opens a usage session on the active job; scanning the
	// same machine again ends it via MachineScanEnd.
	MachineScanStart(context.Context, MachineScanRequest) (jobdomain.JobMachine, error)
	MachineScanEnd(context.Context, MachineScanRequest) (jobdomain.JobMachine, error)
}

var ErrNoOpenSession = errors.New("no_open_session")

type Params struct {
	fx.In

	Log       *zap.Logger
	Jobs      jobdomain.Service
	Materials materialdomain.Service
	Machines  machinedomain.Service
	ActiveJob activejobdomain.Service
}

type service struct {
	log       *zap.Logger
	jobs      jobdomain.Service
	materials materialdomain.Service
	machines  machinedomain.Service
	activeJob activejobdomain.Service
}

func New(p Params) Service {
	return &service{
		log:       p.Log.Named("scan.service"),
		jobs:      p.Jobs,
		materials: p.Materials,
		machines:  p.Machines,
		activeJob: p.ActiveJob,
	}
}

func (s *service) MaterialScan(ctx context.Context, req MaterialScanRequest) (jobdomain.JobMaterial, error) {
	job, err := s.targetJob(ctx, req.Username)
	if err != nil {
		return jobdomain.JobMaterial{}, err
	}

	material, err := s.materials.Lookup(ctx, req.Identifier)
	if err != nil {
		return jobdomain.JobMaterial{}, err
	}

	return s.jobs.AddMaterial(ctx, jobdomain.AddMaterialRequest{
		JobID:      job.ID.String(),
		MaterialID: material.ID.String(),
		Quantity:   req.Quantity,
		AddedBy:    req.Username,
		Result:     req.Result,
		Notes:      req.Notes,
	})
}

func (s *service) MachineScanStart(ctx context.Context, req MachineScanRequest) (jobdomain.JobMachine, error) {
	job, err := s.targetJob(ctx, req.Username)
	if err != nil {
		return jobdomain.JobMachine{}, err
	}

	machine, err := s.machines.Lookup(ctx, req.Identifier)
	if err != nil {
		return jobdomain.JobMachine{}, err
	}

	return s.jobs.StartUsage(ctx, jobdomain.StartUsageRequest{
		JobID:        job.ID.String(),
		MachineID:    machine.ID.String(),
		OperatorName: req.Username,
		Notes:        req.Notes,
	})
}

func (s *service) MachineScanEnd(ctx context.Context, req MachineScanRequest) (jobdomain.JobMachine, error) {
	job, err := s.targetJob(ctx, req.Username)
	if err != nil {
		return jobdomain.JobMachine{}, err
	}

	machine, err := s.machines.Lookup(ctx, req.Identifier)
	if err != nil {
		return jobdomain.JobMachine{}, err
	}

	usage, err := s.jobs.ActiveUsage(ctx, job.ID.String(), machine.ID.String())
	if err != nil {
		if err == jobdomain.ErrNotFound {
			return jobdomain.JobMachine{}, ErrNoOpenSession
		}
		return jobdomain.JobMachine{}, err
	}

	return s.jobs.EndUsage(ctx, jobdomain.EndUsageRequest{
		UsageID: usage.ID.String(),
		Notes:   req.Notes,
	})
}

// targetJob resolves where the scan lands. An operator without an active job
// is dropped onto their personal job first, so no scan is ever lost.
func (s *service) targetJob(ctx context.Context, username string) (jobdomain.Job, error) {
	job, err := s.activeJob.CurrentActiveJob(ctx, username)
	if err == nil {
		return job, nil
	}
	if err != activejobdomain.ErrNoActiveJob {
		return jobdomain.Job{}, err
	}
	return s.activeJob.Deactivate(ctx, username)
}
