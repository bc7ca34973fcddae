package job

import (
	"github.com/makerbench/makerbench/internal/job/costing"
	"github.com/makerbench/makerbench/internal/job/repository"
	"github.com/makerbench/makerbench/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(costing.New),
	fx.Provide(service.New),
)
