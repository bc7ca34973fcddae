package scan

import "go.uber.org/fx"

var Module = fx.Module("scan.service",
	fx.Provide(New),
)
