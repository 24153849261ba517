package components

import (
	"log/slog"

	"offer-relay/internal/infra/channelmap"
	"offer-relay/internal/infra/discord"
	"offer-relay/internal/infra/trading"
	"offer-relay/internal/pkg/config"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/fx"
)

var AdapterModule = fx.Module("adapters",
	fx.Provide(
		fx.Annotate(
			NewTradingClient,
			fx.As(new(shared.OfferSource)),
		),
		fx.Annotate(
			NewChannelDirectory,
			fx.As(new(shared.ChannelDirectory)),
		),
		NewDiscordSession,
		fx.Annotate(
			NewSurface,
			fx.As(new(shared.Surface)),
		),
	),
)

func NewTradingClient(cfg config.Config, logger *slog.Logger) *trading.Client {
	return trading.NewClient(cfg.Trading, logger)
}

func NewChannelDirectory(cfg config.Config, logger *slog.Logger) *channelmap.YAMLDirectory {
	return channelmap.NewYAMLDirectory(cfg.Notify.ChannelMapPath, logger)
}

// NewDiscordSession creates the REST session. The gateway is only opened by the serve command.
func NewDiscordSession(cfg config.Config) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, errs.Wrap(err, "create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

func NewSurface(s *discordgo.Session, logger *slog.Logger) *discord.Surface {
	return discord.NewSurface(s, logger)
}
