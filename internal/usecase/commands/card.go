package commands

import (
	"strings"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/usecase/shared"
)

// BuildCard renders the detail view of an offer. imageURL may be empty.
func BuildCard(o *offer.Offer, imageURL string) shared.OfferCard {
	msg := strings.TrimSpace(o.BuyerMessage())
	if strings.EqualFold(msg, "nan") {
		msg = ""
	}
	return shared.OfferCard{
		OfferID:      o.OfferID(),
		ItemID:       o.ItemID(),
		SKU:          strings.ToLower(strings.TrimSpace(o.SKU())),
		Title:        o.Title(),
		OfferAmount:  o.OfferAmount().Display(),
		ListingPrice: o.BINPrice().Display(),
		Currency:     o.BINPrice().Currency(),
		BuyerUserID:  o.BuyerUserID(),
		ExpiresOn:    o.Expiration().String(),
		BuyerMessage: msg,
		ImageURL:     imageURL,
	}
}
