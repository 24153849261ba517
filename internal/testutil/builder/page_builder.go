//go:build unit || e2e

package builder

import (
	"offer-relay/internal/usecase/shared"
)

type PageBuilder struct {
	page shared.OfferPage
}

func NewPageBuilder(page, totalPages int) *PageBuilder {
	return &PageBuilder{page: shared.OfferPage{Page: page, Ack: shared.AckSuccess, TotalPages: totalPages}}
}

func (b *PageBuilder) WithAck(ack shared.Ack) *PageBuilder {
	b.page.Ack = ack
	return b
}

func (b *PageBuilder) WithError(code, msg string) *PageBuilder {
	b.page.Errors = append(b.page.Errors, shared.UpstreamMessage{Code: code, Message: msg})
	return b
}

// WithItem adds a listing and its offers.
func (b *PageBuilder) WithItem(itemID string, offers ...shared.RawOffer) *PageBuilder {
	b.page.Items = append(b.page.Items, shared.RawItemOffers{
		Item: shared.RawItem{
			ItemID:        itemID,
			Title:         "Listing " + itemID,
			BuyItNowPrice: shared.RawAmount{Value: "100.0", Currency: "USD"},
		},
		Offers: offers,
	})
	return b
}

func (b *PageBuilder) Build() *shared.OfferPage {
	p := b.page
	return &p
}

// RawOffer returns a pending buyer offer with the given ID.
func RawOffer(id string) shared.RawOffer {
	return shared.RawOffer{
		BestOfferID:    id,
		BuyerUserID:    "buyer_" + id,
		BuyerMessage:   "",
		Price:          shared.RawAmount{Value: "80.0", Currency: "USD"},
		Quantity:       "1",
		ExpirationTime: "2025-03-01T20:00:00.000Z",
		CodeType:       "BuyerBestOffer",
		Status:         "Pending",
	}
}

func RawOfferWith(id string, mutate func(*shared.RawOffer)) shared.RawOffer {
	o := RawOffer(id)
	mutate(&o)
	return o
}
