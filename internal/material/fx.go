package material

import (
	"github.com/makerbench/makerbench/internal/material/repository"
	"github.com/makerbench/makerbench/internal/material/service"
	"go.uber.org/fx"
)

var Module = fx.Module("material.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
