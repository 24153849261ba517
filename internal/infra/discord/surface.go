// Package discord implements the chat surface on a Discord bot session.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/bwmarrin/discordgo"
)

// MessageSender is the part of *discordgo.Session the surface uses.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

type Surface struct {
	session MessageSender
	logger  *slog.Logger
}

var _ shared.Surface = (*Surface)(nil)

func NewSurface(session MessageSender, logger *slog.Logger) *Surface {
	return &Surface{session: session, logger: logger}
}

func (s *Surface) PostAlert(ctx context.Context, channelID, text string) error {
	if _, err := s.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return errs.Wrapf(err, "post alert to channel %s", channelID)
	}
	return nil
}

func (s *Surface) PostOfferCard(ctx context.Context, channelID string, card shared.OfferCard) (string, error) {
	msg, err := s.session.ChannelMessageSendComplex(channelID, RenderCard(card), discordgo.WithContext(ctx))
	if err != nil {
		return "", errs.Wrapf(err, "post offer card %s to channel %s", card.OfferID, channelID)
	}
	return msg.ID, nil
}

// RetireOfferCard deletes the card. A card that is already gone counts as retired.
func (s *Surface) RetireOfferCard(ctx context.Context, ref offer.SurfaceRef) error {
	if ref.ChannelID == "" || ref.MessageID == "" {
		return nil
	}
	err := s.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err == nil || isNotFound(err) {
		return nil
	}
	return errs.Wrapf(err, "delete message %s", ref.MessageID)
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
