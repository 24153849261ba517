package bootstrap

import (
	"offer-relay/cmd/bootstrap/components"

	"go.uber.org/fx"
)

// CoreModule is everything a one-shot command needs.
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	components.PersistenceModule,
	components.QueriesModule,
	components.AdapterModule,
	components.UseCaseModule,
)

// Module adds the long-running surfaces on top of CoreModule.
var Module = fx.Options(
	CoreModule,
	components.HandlerModule,
	ServeModule,
)
