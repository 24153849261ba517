package components

import (
	"log/slog"

	"offer-relay/internal/handler"
	"offer-relay/internal/handler/api"
	"offer-relay/internal/handler/bot"
	"offer-relay/internal/usecase/commands"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewOfferHandler,
		api.NewCycleHandler,
		NewInteractionHandler,
	),
	fx.Invoke(handler.NewRouter),
)

func NewInteractionHandler(engine commands.ResponseEngine, s *discordgo.Session, logger *slog.Logger) *bot.InteractionHandler {
	return bot.NewInteractionHandler(engine, s, logger)
}
