package bot

import (
	"github.com/bwmarrin/discordgo"
)

const CheckOffersCommand = "checkoffers"

// Commands are the slash commands the bot registers.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        CheckOffersCommand,
		Description: "Check for new eBay offers for this channel's SKU",
	},
}

type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the application's commands. An empty guildID registers them globally.
func RegisterCommands(r CommandRegistrar, appID, guildID string) error {
	_, err := r.ApplicationCommandBulkOverwrite(appID, guildID, Commands)
	return err
}
