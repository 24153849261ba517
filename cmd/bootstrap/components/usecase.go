package components

import (
	"log/slog"
	"time"

	"offer-relay/internal/pkg/clock"
	"offer-relay/internal/pkg/config"
	"offer-relay/internal/usecase/commands"
	"offer-relay/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	shared.NewKeyedMutex,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewReconciler,
		NewIngestionPipeline,
		commands.NewNotificationDispatcher,
		NewResponseEngine,
	),
)

func NewIngestionPipeline(
	source shared.OfferSource,
	merger commands.OfferMerger,
	uow shared.UnitOfWork,
	lock shared.CycleLock,
	clk clock.Clock,
	loc *time.Location,
	logger *slog.Logger,
	cfg config.Config,
) commands.IngestionPipeline {
	return commands.NewIngestionPipeline(source, merger, uow, lock, clk, logger, commands.IngestionConfig{
		PageSize:               cfg.Ingest.PageSize,
		MaxPages:               cfg.Ingest.MaxPages,
		SKUWorkers:             cfg.Ingest.SKUWorkers,
		MaxConsecutiveFailures: cfg.Ingest.MaxConsecutiveFailures,
		Location:               loc,
	})
}

func NewResponseEngine(
	source shared.OfferSource,
	uow shared.UnitOfWork,
	surface shared.Surface,
	locks *shared.KeyedMutex,
	clk clock.Clock,
	logger *slog.Logger,
	cfg config.Config,
) commands.ResponseEngine {
	return commands.NewResponseEngine(source, uow, surface, locks, clk, logger, commands.ResponseConfig{
		CounterCurrency: cfg.Trading.CounterCurrency,
	})
}
