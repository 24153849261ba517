// Package bot routes Discord interactions to the response engine.
package bot

import (
	"context"
	"log/slog"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/infra/discord"
	"offer-relay/internal/usecase/commands"

	"github.com/bwmarrin/discordgo"
)

const (
	interactionTimeout   = 60 * time.Second
	messageInternalError = "❌ Something went wrong, please try again."
)

// Session is the part of *discordgo.Session the interaction handler needs.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type InteractionHandler struct {
	engine  commands.ResponseEngine
	session Session
	logger  *slog.Logger
}

func NewInteractionHandler(engine commands.ResponseEngine, session Session, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{engine: engine, session: session, logger: logger.With("component", "bot")}
}

// OnInteractionCreate is registered with discordgo's AddHandler.
func (h *InteractionHandler) OnInteractionCreate(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	h.Handle(ctx, ic.Interaction)
}

func (h *InteractionHandler) Handle(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == CheckOffersCommand {
			h.checkOffers(ctx, i)
		}
	case discordgo.InteractionMessageComponent:
		h.component(ctx, i)
	case discordgo.InteractionModalSubmit:
		h.modalSubmit(ctx, i)
	}
}

func (h *InteractionHandler) checkOffers(ctx context.Context, i *discordgo.Interaction) {
	log := h.logger.With("channel_id", i.ChannelID, "user_id", userID(i))
	if !h.deferReply(ctx, log, i, discordgo.MessageFlagsEphemeral) {
		return
	}

	ch, err := h.session.Channel(i.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn("channel lookup failed", "error", err)
		h.editReply(ctx, log, i, messageInternalError)
		return
	}

	result, err := h.engine.SurfaceOffers(ctx, commands.SurfaceRequest{ChannelID: i.ChannelID, ChannelName: ch.Name})
	if err != nil {
		log.Error("surfacing offers failed", "error", err)
		h.editReply(ctx, log, i, messageInternalError)
		return
	}
	log.Info("checkoffers handled", "matched", result.Matched, "posted", result.Posted, "failed", result.Failed)
	h.editReply(ctx, log, i, result.Reply)
}

func (h *InteractionHandler) component(ctx context.Context, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	kind, offerID, ok := discord.ParseCustomID(data.CustomID)
	log := h.logger.With("custom_id", data.CustomID, "user_id", userID(i))
	if !ok || kind == discord.KindCounterSubmit {
		log.Warn("unknown component")
		return
	}

	if kind == discord.KindCounter {
		err := h.session.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: discord.CounterModal(offerID),
		}, discordgo.WithContext(ctx))
		if err != nil {
			log.Warn("counter modal not opened", "error", err)
		}
		return
	}

	action, _ := discord.ActionForKind(kind)
	h.respond(ctx, log, i, offer.Command{OfferID: offerID, Action: action})
}

func (h *InteractionHandler) modalSubmit(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	kind, offerID, ok := discord.ParseCustomID(data.CustomID)
	log := h.logger.With("custom_id", data.CustomID, "user_id", userID(i))
	if !ok || kind != discord.KindCounterSubmit {
		log.Warn("unknown modal")
		return
	}
	h.respond(ctx, log, i, offer.Command{
		OfferID:      offerID,
		Action:       offer.ActionCounter,
		CounterInput: textInputValue(data.Components, discord.CounterInputID),
	})
}

// respond runs the command and then applies the reply and card effects on the platform.
func (h *InteractionHandler) respond(ctx context.Context, log *slog.Logger, i *discordgo.Interaction, cmd offer.Command) {
	if !h.deferReply(ctx, log, i, 0) {
		return
	}

	outcome, err := h.engine.Respond(ctx, cmd)
	if err != nil {
		log.Error("response failed", "offer_id", cmd.OfferID, "error", err)
		h.editReply(ctx, log, i, messageInternalError)
		return
	}

	if outcome.Retire() && !outcome.CardRetired && i.Message != nil {
		if err := h.session.ChannelMessageDelete(i.ChannelID, i.Message.ID, discordgo.WithContext(ctx)); err != nil {
			log.Warn("offer card not deleted", "message_id", i.Message.ID, "error", err)
		}
	}
	h.editReply(ctx, log, i, outcome.Reply)
}

func (h *InteractionHandler) deferReply(ctx context.Context, log *slog.Logger, i *discordgo.Interaction, flags discordgo.MessageFlags) bool {
	err := h.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn("interaction not acknowledged", "error", err)
		return false
	}
	return true
}

func (h *InteractionHandler) editReply(ctx context.Context, log *slog.Logger, i *discordgo.Interaction, text string) {
	if _, err := h.session.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx)); err != nil {
		log.Warn("reply not sent", "error", err)
	}
}

func userID(i *discordgo.Interaction) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	default:
		return ""
	}
}

// textInputValue finds a text input in the submitted rows. Rows arrive as pointers from the gateway.
func textInputValue(rows []discordgo.MessageComponent, id string) string {
	for _, c := range rows {
		var inner []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, ic := range inner {
			switch in := ic.(type) {
			case *discordgo.TextInput:
				if in.CustomID == id {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == id {
					return in.Value
				}
			}
		}
	}
	return ""
}
