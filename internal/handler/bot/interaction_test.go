//go:build unit

package bot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/handler/bot"
	"offer-relay/internal/infra/discord"
	"offer-relay/internal/usecase/commands"
	commandsmock "offer-relay/internal/usecase/commands/mock"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeSession struct {
	responses []*discordgo.InteractionResponse
	edits     []string
	deleted   []string
	channel   *discordgo.Channel
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edits = append(f.edits, *edit.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.deleted = append(f.deleted, channelID+"/"+messageID)
	return nil
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channel == nil {
		return nil, errors.New("404 Unknown Channel")
	}
	return f.channel, nil
}

func newHandler(t *testing.T) (*bot.InteractionHandler, *commandsmock.MockResponseEngine, *fakeSession) {
	t.Helper()
	engine := commandsmock.NewMockResponseEngine(gomock.NewController(t))
	session := &fakeSession{}
	return bot.NewInteractionHandler(engine, session, slog.New(slog.NewTextHandler(io.Discard, nil))), engine, session
}

func button(customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		ChannelID: "1111",
		Message:   &discordgo.Message{ID: "card-1", ChannelID: "1111"},
		Member:    &discordgo.Member{User: &discordgo.User{ID: "42"}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}
}

func TestCheckOffers(t *testing.T) {
	h, engine, session := newHandler(t)
	session.channel = &discordgo.Channel{ID: "1111", Name: "ab-12"}
	engine.EXPECT().
		SurfaceOffers(gomock.Any(), commands.SurfaceRequest{ChannelID: "1111", ChannelName: "ab-12"}).
		Return(&commands.SurfaceResult{Matched: 2, Posted: 2, StoreUpdated: true, Reply: commands.MessageOffersSent}, nil)

	h.Handle(context.Background(), &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "1111",
		Data:      discordgo.ApplicationCommandInteractionData{Name: bot.CheckOffersCommand},
	})

	require.Len(t, session.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, session.responses[0].Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, session.responses[0].Data.Flags)
	assert.Equal(t, []string{commands.MessageOffersSent}, session.edits)
}

func TestCheckOffersUnknownChannel(t *testing.T) {
	h, _, session := newHandler(t)

	h.Handle(context.Background(), &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "1111",
		Data:      discordgo.ApplicationCommandInteractionData{Name: bot.CheckOffersCommand},
	})

	require.Len(t, session.edits, 1)
	assert.Contains(t, session.edits[0], "Something went wrong")
}

func TestButtons(t *testing.T) {
	t.Run("accept replies and leaves an already retired card alone", func(t *testing.T) {
		h, engine, session := newHandler(t)
		engine.EXPECT().
			Respond(gomock.Any(), offer.Command{OfferID: "500001", Action: offer.ActionAccept}).
			Return(&commands.ResponseOutcome{
				OfferID:     "500001",
				Reply:       "✅ Offer accepted.",
				Effects:     []offer.Effect{{Kind: offer.EffectRetireCard}},
				CardRetired: true,
			}, nil)

		h.Handle(context.Background(), button(discord.ActionCustomID(offer.ActionAccept, "500001")))

		assert.Equal(t, []string{"✅ Offer accepted."}, session.edits)
		assert.Empty(t, session.deleted)
	})

	t.Run("decline deletes the clicked card when the stored one was not retired", func(t *testing.T) {
		h, engine, session := newHandler(t)
		engine.EXPECT().Respond(gomock.Any(), gomock.Any()).Return(&commands.ResponseOutcome{
			Reply:   "❌ Offer declined.",
			Effects: []offer.Effect{{Kind: offer.EffectRetireCard}},
		}, nil)

		h.Handle(context.Background(), button(discord.ActionCustomID(offer.ActionDecline, "500001")))

		assert.Equal(t, []string{"1111/card-1"}, session.deleted)
		assert.Equal(t, []string{"❌ Offer declined."}, session.edits)
	})

	t.Run("rejected action keeps the card", func(t *testing.T) {
		h, engine, session := newHandler(t)
		engine.EXPECT().Respond(gomock.Any(), gomock.Any()).Return(&commands.ResponseOutcome{
			Reply: "❌ Failed to accept offer: Invalid token.",
			Err:   errors.New("upstream"),
		}, nil)

		h.Handle(context.Background(), button(discord.ActionCustomID(offer.ActionAccept, "500001")))

		assert.Empty(t, session.deleted)
		assert.Equal(t, []string{"❌ Failed to accept offer: Invalid token."}, session.edits)
	})

	t.Run("counter opens the modal without calling the engine", func(t *testing.T) {
		h, _, session := newHandler(t)

		h.Handle(context.Background(), button(discord.ActionCustomID(offer.ActionCounter, "500001")))

		require.Len(t, session.responses, 1)
		assert.Equal(t, discordgo.InteractionResponseModal, session.responses[0].Type)
		assert.Equal(t, "offer:counter-submit:500001", session.responses[0].Data.CustomID)
		assert.Empty(t, session.edits)
	})

	t.Run("unknown custom id is ignored", func(t *testing.T) {
		h, _, session := newHandler(t)

		h.Handle(context.Background(), button("listing:refresh:1"))

		assert.Empty(t, session.responses)
	})

	t.Run("engine failure gets a generic reply", func(t *testing.T) {
		h, engine, session := newHandler(t)
		engine.EXPECT().Respond(gomock.Any(), gomock.Any()).Return(nil, errors.New("offer store is locked"))

		h.Handle(context.Background(), button(discord.ActionCustomID(offer.ActionDecline, "500001")))

		require.Len(t, session.edits, 1)
		assert.Contains(t, session.edits[0], "Something went wrong")
		assert.Empty(t, session.deleted)
	})
}

func TestCounterModalSubmit(t *testing.T) {
	h, engine, session := newHandler(t)
	engine.EXPECT().
		Respond(gomock.Any(), offer.Command{OfferID: "500001", Action: offer.ActionCounter, CounterInput: "42.50"}).
		Return(&commands.ResponseOutcome{Reply: "💬 Counter offer sent."}, nil)

	h.Handle(context.Background(), &discordgo.Interaction{
		Type:      discordgo.InteractionModalSubmit,
		ChannelID: "1111",
		Message:   &discordgo.Message{ID: "card-1"},
		User:      &discordgo.User{ID: "42"},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: discord.CounterModalCustomID("500001"),
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: discord.CounterInputID, Value: "42.50"},
				}},
			},
		},
	})

	assert.Equal(t, []string{"💬 Counter offer sent."}, session.edits)
	assert.Empty(t, session.deleted)
}

type fakeRegistrar struct {
	appID, guildID string
	commands       []*discordgo.ApplicationCommand
}

func (f *fakeRegistrar) ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.appID, f.guildID, f.commands = appID, guildID, cmds
	return cmds, nil
}

func TestRegisterCommands(t *testing.T) {
	r := &fakeRegistrar{}
	require.NoError(t, bot.RegisterCommands(r, "app", "guild"))
	assert.Equal(t, "app", r.appID)
	assert.Equal(t, "guild", r.guildID)
	require.Len(t, r.commands, 1)
	assert.Equal(t, "checkoffers", r.commands[0].Name)
}
