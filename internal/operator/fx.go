package operator

import (
	"github.com/makerbench/makerbench/internal/operator/repository"
	"github.com/makerbench/makerbench/internal/operator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("operator.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
