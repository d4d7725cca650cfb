package remotemetrics

import "go.uber.org/fx"

var Module = fx.Module("remote.metrics",
	fx.Provide(NewPusher),
	fx.Provide(NewReporter),
)
