package activejob

import (
	"github.com/makerbench/makerbench/internal/activejob/repository"
	"github.com/makerbench/makerbench/internal/activejob/service"
	"go.uber.org/fx"
)

var Module = fx.Module("activejob.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
