package converter

import (
	"fmt"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/pgconv"
)

// OfferRow is the storage shape shared by the postgres and sqlite repositories.
type OfferRow struct {
	OfferID           string
	ItemID            string
	SKU               string
	SKUKey            string
	Title             string
	BINPrice          string
	BINCurrency       string
	BuyerUserID       string
	BuyerMessage      string
	OfferAmount       string
	OfferCurrency     string
	Quantity          int
	ExpirationDisplay string
	ExpiresAt         *time.Time
	OfferType         string
	Status            string
	FetchedOn         time.Time
	ChannelAlerted    bool
	AlertedAt         *time.Time
	Surfaced          bool
	SurfacedAt        *time.Time
	SurfaceChannelID  string
	SurfaceMessageID  string
	ResponseState     string
	RespondedAt       *time.Time
	ResponseNote      string
}

func OfferToRow(o *offer.Offer) OfferRow {
	n := o.Notification()
	ref := n.Surface()
	return OfferRow{
		OfferID:           o.OfferID(),
		ItemID:            o.ItemID(),
		SKU:               o.SKU(),
		SKUKey:            o.SKUKey(),
		Title:             o.Title(),
		BINPrice:          pgconv.NumericText(o.BINPrice().Amount()),
		BINCurrency:       o.BINPrice().Currency(),
		BuyerUserID:       o.BuyerUserID(),
		BuyerMessage:      o.BuyerMessage(),
		OfferAmount:       pgconv.NumericText(o.OfferAmount().Amount()),
		OfferCurrency:     o.OfferAmount().Currency(),
		Quantity:          o.Quantity(),
		ExpirationDisplay: o.Expiration().String(),
		ExpiresAt:         utcPtr(o.Expiration().AtPtr()),
		OfferType:         o.OfferType().String(),
		Status:            o.Status().String(),
		FetchedOn:         o.FetchedOn().UTC(),
		ChannelAlerted:    n.ChannelAlerted(),
		AlertedAt:         utcPtr(n.AlertedAt()),
		Surfaced:          n.Surfaced(),
		SurfacedAt:        utcPtr(n.SurfacedAt()),
		SurfaceChannelID:  ref.ChannelID,
		SurfaceMessageID:  ref.MessageID,
		ResponseState:     o.Response().String(),
		RespondedAt:       utcPtr(o.RespondedAt()),
		ResponseNote:      o.ResponseNote(),
	}
}

// OfferFromRow rebuilds the entity. Expiration instants are moved into loc so they match the
// stored display text.
func OfferFromRow(r OfferRow, loc *time.Location) (*offer.Offer, error) {
	binPrice, err := pgconv.DecimalFromText(r.BINPrice)
	if err != nil {
		return nil, fmt.Errorf("offer %s bin_price %q: %w", r.OfferID, r.BINPrice, err)
	}
	amount, err := pgconv.DecimalFromText(r.OfferAmount)
	if err != nil {
		return nil, fmt.Errorf("offer %s offer_amount %q: %w", r.OfferID, r.OfferAmount, err)
	}
	state, ok := offer.ParseResponseState(r.ResponseState)
	if !ok {
		return nil, fmt.Errorf("offer %s response_state %q: %w", r.OfferID, r.ResponseState, offer.ErrInvalidResponseState)
	}

	expiresAt := r.ExpiresAt
	if expiresAt != nil && loc != nil {
		local := expiresAt.In(loc)
		expiresAt = &local
	}

	draft := offer.Draft{
		OfferID:      r.OfferID,
		ItemID:       r.ItemID,
		SKU:          r.SKU,
		Title:        r.Title,
		BINPrice:     offer.NewMoney(binPrice, r.BINCurrency),
		BuyerUserID:  r.BuyerUserID,
		BuyerMessage: r.BuyerMessage,
		OfferAmount:  offer.NewMoney(amount, r.OfferCurrency),
		Quantity:     r.Quantity,
		Expiration:   offer.ReconstructExpiration(expiresAt, r.ExpirationDisplay),
		OfferType:    offer.Type(r.OfferType),
		Status:       offer.Status(r.Status),
		FetchedOn:    r.FetchedOn,
	}
	notification := offer.ReconstructNotificationState(
		r.ChannelAlerted, r.AlertedAt,
		r.Surfaced, r.SurfacedAt,
		offer.SurfaceRef{ChannelID: r.SurfaceChannelID, MessageID: r.SurfaceMessageID},
	)
	return offer.Reconstruct(draft, notification, state, r.RespondedAt, r.ResponseNote), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
