package discord

import (
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/usecase/shared"

	"github.com/bwmarrin/discordgo"
)

const cardColor = 0x3498db

// RenderCard builds the offer embed with its Accept, Decline and Counter buttons.
func RenderCard(card shared.OfferCard) *discordgo.MessageSend {
	embed := &discordgo.MessageEmbed{
		Title: "Offer for " + card.SKU,
		Color: cardColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ebay Listing Name", Value: orNA(card.Title), Inline: false},
			{Name: "Offer Amount", Value: card.OfferAmount, Inline: true},
			{Name: "Current Listing Price", Value: card.ListingPrice, Inline: true},
			{Name: "Currency", Value: orNA(card.Currency), Inline: true},
			{Name: "Buyer UserID", Value: orNA(card.BuyerUserID), Inline: true},
			{Name: "Offer Expires On", Value: orNA(card.ExpiresOn), Inline: false},
		},
	}
	if card.BuyerMessage != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Buyer Message", Value: card.BuyerMessage})
	}
	if card.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: card.ImageURL}
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "✅ Accept Offer", Style: discordgo.SuccessButton, CustomID: ActionCustomID(offer.ActionAccept, card.OfferID)},
				discordgo.Button{Label: "❌ Decline Offer", Style: discordgo.DangerButton, CustomID: ActionCustomID(offer.ActionDecline, card.OfferID)},
				discordgo.Button{Label: "💬 Counter Offer", Style: discordgo.PrimaryButton, CustomID: ActionCustomID(offer.ActionCounter, card.OfferID)},
			}},
		},
	}
}

// CounterModal asks for the counter amount of one offer.
func CounterModal(offerID string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: CounterModalCustomID(offerID),
		Title:    "Submit Counter Offer",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    CounterInputID,
					Label:       "Counter Offer Amount (USD)",
					Style:       discordgo.TextInputShort,
					Placeholder: "e.g. 42.50",
					Required:    true,
					MaxLength:   16,
				},
			}},
		},
	}
}

// embed field values may not be empty
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
