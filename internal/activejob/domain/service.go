package domain

import (
	"context"
	"errors"

	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
)

// Service routes an operator's scans to a job. Every operator always has a
// personal job to fall back to, so deactivation never leaves scans dangling.
type Service interface {
	// EnsurePersonalJob creates the operator's personal job and routing row
	// on first use; later calls return the existing job unchanged.
	EnsurePersonalJob(ctx context.Context, username string) (jobdomain.Job, error)

	// Activate makes the given job (by its human-readable identifier) the
	// operator's active job and logs the switch.
	Activate(ctx context.Context, username, jobID string) (jobdomain.Job, error)

	// Deactivate drops the operator back onto their personal job.
	Deactivate(ctx context.Context, username string) (jobdomain.Job, error)

	// CurrentActiveJob resolves where the operator's scans go right now.
	CurrentActiveJob(ctx context.Context, username string) (jobdomain.Job, error)

	Settings(ctx context.Context, username string) (StaffSettings, error)
}

var (
	ErrNoActiveJob = errors.New("no_active_job")
	ErrNotFound    = errors.New("not_found")
)
