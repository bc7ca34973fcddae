package machine

import (
	"github.com/makerbench/makerbench/internal/machine/repository"
	"github.com/makerbench/makerbench/internal/machine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("machine.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
