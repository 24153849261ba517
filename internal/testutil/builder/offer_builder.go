//go:build unit || e2e

package builder

import (
	"testing"
	"time"
	_ "time/tzdata"

	"offer-relay/internal/domain/offer"

	"github.com/shopspring/decimal"
)

type OfferBuilder struct {
	OfferID      string
	ItemID       string
	SKU          string
	Title        string
	BINPrice     string
	OfferAmount  string
	Currency     string
	BuyerUserID  string
	BuyerMessage string
	Quantity     int
	Expiration   string
	OfferType    offer.Type
	Status       offer.Status
	FetchedOn    time.Time

	Alerted     bool
	Surfaced    bool
	Surface     offer.SurfaceRef
	Response    offer.ResponseState
	RespondedAt *time.Time
}

func NewOfferBuilder() *OfferBuilder {
	return &OfferBuilder{
		OfferID:      "500001",
		ItemID:       "110011",
		SKU:          "AB-12",
		Title:        "Vintage Film Camera",
		BINPrice:     "120.00",
		OfferAmount:  "95.50",
		Currency:     "USD",
		BuyerUserID:  "buyer_one",
		BuyerMessage: "Would you take this?",
		Quantity:     1,
		Expiration:   "2025-03-01T20:00:00.000Z",
		OfferType:    offer.TypeBuyerBestOffer,
		Status:       offer.StatusPending,
		FetchedOn:    time.Date(2025, 2, 27, 10, 0, 0, 0, time.UTC),
		Response:     offer.ResponseOpen,
	}
}

func (b *OfferBuilder) With(mutate func(*OfferBuilder)) *OfferBuilder {
	mutate(b)
	return b
}

func (b *OfferBuilder) WithID(id string) *OfferBuilder {
	b.OfferID = id
	return b
}

func (b *OfferBuilder) WithSKU(sku string) *OfferBuilder {
	b.SKU = sku
	return b
}

func (b *OfferBuilder) WithResponse(state offer.ResponseState) *OfferBuilder {
	b.Response = state
	return b
}

func (b *OfferBuilder) WithSurface(channelID, messageID string) *OfferBuilder {
	b.Surfaced = true
	b.Surface = offer.SurfaceRef{ChannelID: channelID, MessageID: messageID}
	return b
}

func (b *OfferBuilder) Draft() offer.Draft {
	loc, _ := time.LoadLocation("America/Los_Angeles")
	return offer.Draft{
		OfferID:      b.OfferID,
		ItemID:       b.ItemID,
		SKU:          b.SKU,
		Title:        b.Title,
		BINPrice:     offer.NewMoney(decimal.RequireFromString(b.BINPrice), b.Currency),
		BuyerUserID:  b.BuyerUserID,
		BuyerMessage: b.BuyerMessage,
		OfferAmount:  offer.NewMoney(decimal.RequireFromString(b.OfferAmount), b.Currency),
		Quantity:     b.Quantity,
		Expiration:   offer.ParseExpiration(b.Expiration, loc),
		OfferType:    b.OfferType,
		Status:       b.Status,
		FetchedOn:    b.FetchedOn,
	}
}

// BuildNew goes through the validating constructor.
func (b *OfferBuilder) BuildNew() (*offer.Offer, error) {
	return offer.New(b.Draft())
}

// Build reconstructs a persisted offer including notification and response state.
func (b *OfferBuilder) Build() *offer.Offer {
	var alertedAt, surfacedAt *time.Time
	if b.Alerted {
		t := b.FetchedOn.Add(time.Hour)
		alertedAt = &t
	}
	if b.Surfaced {
		t := b.FetchedOn.Add(2 * time.Hour)
		surfacedAt = &t
	}
	ns := offer.ReconstructNotificationState(b.Alerted, alertedAt, b.Surfaced, surfacedAt, b.Surface)
	return offer.Reconstruct(b.Draft(), ns, b.Response, b.RespondedAt, "")
}

// BuildNewOrFail is BuildNew for callers that only want valid offers.
func (b *OfferBuilder) BuildNewOrFail(t testing.TB) *offer.Offer {
	t.Helper()
	o, err := b.BuildNew()
	if err != nil {
		t.Fatalf("build offer %s: %v", b.OfferID, err)
	}
	return o
}
