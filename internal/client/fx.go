package client

import (
	"github.com/makerbench/makerbench/internal/client/repository"
	"github.com/makerbench/makerbench/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
