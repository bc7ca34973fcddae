package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/activejob/domain"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/identifier"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	operatordomain "github.com/makerbench/makerbench/internal/operator/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const personalStatusName = "Personal"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Repo     domain.Repository
	Jobs     jobdomain.Service
	Operator operatordomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *metrics.Metrics
	repo     domain.Repository
	jobs     jobdomain.Service
	operator operatordomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("activejob.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		metrics:  p.Metrics,
		repo:     p.Repo,
		jobs:     p.Jobs,
		operator: p.Operator,
	}
}

func (s *Service) EnsurePersonalJob(ctx context.Context, username string) (jobdomain.Job, error) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return jobdomain.Job{}, err
	}

	settings, err := s.ensureSettings(ctx, worker)
	if err != nil {
		return jobdomain.Job{}, err
	}
	if settings.PersonalJobID != nil {
		return s.jobs.GetByID(ctx, settings.PersonalJobID.String())
	}

	// The shared Personal status is created once and reused by everyone.
	status, err := s.jobs.CreateStatus(ctx, jobdomain.CreateStatusRequest{
		Name:      personalStatusName,
		ColorCode: "#9b59b6",
		SortOrder: 99,
	})
	if err != nil {
		return jobdomain.Job{}, err
	}

	personalID := identifier.PersonalJobID(worker.Username, identifier.Year(s.clock.Now()))
	job, err := s.jobs.Create(ctx, jobdomain.CreateJobRequest{
		ProjectName: "Personal - " + worker.DisplayName(),
		Description: "Catch-all for personal and unattributed work",
		StatusName:  status.Name,
		JobID:       personalID,
		IsPersonal:  true,
		OwnerID:     &worker.ID,
	})
	if err != nil {
		// A concurrent call may have created the same personal job; adopt it.
		if err == identifier.ErrIdentifierConflict {
			job, err = s.jobs.GetByJobID(ctx, personalID)
		}
		if err != nil {
			return jobdomain.Job{}, err
		}
	}

	settings.PersonalJobID = &job.ID
	settings.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return jobdomain.Job{}, err
	}
	return job, nil
}

func (s *Service) Activate(ctx context.Context, username, jobID string) (jobdomain.Job, error) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return jobdomain.Job{}, err
	}

	job, err := s.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return jobdomain.Job{}, err
	}

	settings, err := s.ensureSettings(ctx, worker)
	if err != nil {
		return jobdomain.Job{}, err
	}

	if settings.ActiveJobID != nil && *settings.ActiveJobID != job.ID {
		s.logSwitch(ctx, worker, *settings.ActiveJobID, jobdomain.ActivityDeactivation, "deactivated")
	}

	now := s.clock.Now()
	settings.ActiveJobID = &job.ID
	settings.ActiveSince = &now
	settings.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return jobdomain.Job{}, err
	}

	s.logSwitch(ctx, worker, job.ID, jobdomain.ActivityActivation, "activated")
	return job, nil
}

// Deactivate never leaves the operator without a destination: scans fall
// back to the personal job.
func (s *Service) Deactivate(ctx context.Context, username string) (jobdomain.Job, error) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return jobdomain.Job{}, err
	}

	personal, err := s.EnsurePersonalJob(ctx, username)
	if err != nil {
		return jobdomain.Job{}, err
	}

	settings, err := s.ensureSettings(ctx, worker)
	if err != nil {
		return jobdomain.Job{}, err
	}

	if settings.ActiveJobID != nil && *settings.ActiveJobID != personal.ID {
		s.logSwitch(ctx, worker, *settings.ActiveJobID, jobdomain.ActivityDeactivation, "deactivated")
	}

	now := s.clock.Now()
	settings.ActiveJobID = &personal.ID
	settings.ActiveSince = &now
	settings.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, settings); err != nil {
		return jobdomain.Job{}, err
	}

	s.logSwitch(ctx, worker, personal.ID, jobdomain.ActivityActivation, "fell back to personal job")
	return personal, nil
}

func (s *Service) CurrentActiveJob(ctx context.Context, username string) (jobdomain.Job, error) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return jobdomain.Job{}, err
	}

	settings, err := s.repo.FindByOperator(ctx, s.db, worker.ID)
	if err != nil {
		return jobdomain.Job{}, err
	}
	if settings == nil || settings.ActiveJobID == nil {
		return jobdomain.Job{}, domain.ErrNoActiveJob
	}
	return s.jobs.GetByID(ctx, settings.ActiveJobID.String())
}

func (s *Service) Settings(ctx context.Context, username string) (domain.StaffSettings, error) {
	worker, err := s.operator.GetByUsername(ctx, username)
	if err != nil {
		return domain.StaffSettings{}, err
	}

	settings, err := s.repo.FindByOperator(ctx, s.db, worker.ID)
	if err != nil {
		return domain.StaffSettings{}, err
	}
	if settings == nil {
		return domain.StaffSettings{}, domain.ErrNotFound
	}
	return *settings, nil
}

func (s *Service) ensureSettings(ctx context.Context, worker operatordomain.Operator) (*domain.StaffSettings, error) {
	settings, err := s.repo.FindByOperator(ctx, s.db, worker.ID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	settings = &domain.StaffSettings{
		ID:         s.genID.Generate(),
		OperatorID: worker.ID,
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Service) logSwitch(ctx context.Context, worker operatordomain.Operator, jobID snowflake.ID, activity jobdomain.ActivityType, description string) {
	err := s.jobs.LogActivity(ctx, jobdomain.JobActivityLog{
		OperatorID:   worker.ID,
		JobID:        jobID,
		ActivityType: activity,
		Description:  strings.TrimSpace(worker.Username + " " + description),
		Metadata:     datatypes.JSONMap{"username": worker.Username},
	})
	if err != nil {
		s.log.Warn("failed to log job switch", zap.Error(err))
	}
	s.metrics.RecordJobActivity(string(activity))
}
