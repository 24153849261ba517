package queries

import (
	"context"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var ErrInvalidStateFilter = errs.New("invalid response state filter")

// OfferView is the read model of one stored offer
type OfferView struct {
	OfferID        string     `json:"offer_id"`
	ItemID         string     `json:"item_id"`
	SKU            string     `json:"sku"`
	Title          string     `json:"title"`
	BINPrice       string     `json:"bin_price"`
	BINCurrency    string     `json:"bin_currency"`
	OfferAmount    string     `json:"offer_amount"`
	OfferCurrency  string     `json:"offer_currency"`
	Quantity       int        `json:"quantity"`
	BuyerUserID    string     `json:"buyer_user_id"`
	BuyerMessage   string     `json:"buyer_message,omitempty"`
	ExpiresOn      string     `json:"expires_on"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	OfferType      string     `json:"offer_type"`
	Status         string     `json:"status"`
	FetchedOn      time.Time  `json:"fetched_on"`
	ChannelAlerted bool       `json:"channel_alerted"`
	AlertedAt      *time.Time `json:"alerted_at,omitempty"`
	Surfaced       bool       `json:"surfaced"`
	SurfacedAt     *time.Time `json:"surfaced_at,omitempty"`
	ResponseState  string     `json:"response_state"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
	ResponseNote   string     `json:"response_note,omitempty"`
}

type ListFilter struct {
	State string
	SKU   string
	Limit int
}

//go:generate mockgen -source=offers.go -destination=mock/offers.go -package=mock

type OfferQueries interface {
	List(ctx context.Context, filter ListFilter) ([]*OfferView, error)
	Get(ctx context.Context, offerID string) (*OfferView, error)
}

type offerQueries struct {
	uow shared.UnitOfWork
}

func NewOfferQueries(uow shared.UnitOfWork) OfferQueries {
	return &offerQueries{uow: uow}
}

func (q *offerQueries) List(ctx context.Context, filter ListFilter) ([]*OfferView, error) {
	f := shared.OfferFilter{SKU: filter.SKU, Limit: filter.Limit}
	if filter.State != "" {
		state, ok := offer.ParseResponseState(filter.State)
		if !ok {
			return nil, ErrInvalidStateFilter
		}
		f.State = &state
	}
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}

	var offers []*offer.Offer
	err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var lerr error
		offers, lerr = tx.Offers().List(ctx, f)
		return lerr
	})
	if err != nil {
		return nil, errs.Wrap(err, "list offers")
	}

	views := make([]*OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, ToView(o))
	}
	return views, nil
}

func (q *offerQueries) Get(ctx context.Context, offerID string) (*OfferView, error) {
	var o *offer.Offer
	err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var ferr error
		o, ferr = tx.Offers().FindByID(ctx, offerID)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return ToView(o), nil
}

func ToView(o *offer.Offer) *OfferView {
	n := o.Notification()
	return &OfferView{
		OfferID:        o.OfferID(),
		ItemID:         o.ItemID(),
		SKU:            o.SKU(),
		Title:          o.Title(),
		BINPrice:       o.BINPrice().Amount().StringFixed(2),
		BINCurrency:    o.BINPrice().Currency(),
		OfferAmount:    o.OfferAmount().Amount().StringFixed(2),
		OfferCurrency:  o.OfferAmount().Currency(),
		Quantity:       o.Quantity(),
		BuyerUserID:    o.BuyerUserID(),
		BuyerMessage:   o.BuyerMessage(),
		ExpiresOn:      o.Expiration().String(),
		ExpiresAt:      o.Expiration().AtPtr(),
		OfferType:      o.OfferType().String(),
		Status:         o.Status().String(),
		FetchedOn:      o.FetchedOn(),
		ChannelAlerted: n.ChannelAlerted(),
		AlertedAt:      n.AlertedAt(),
		Surfaced:       n.Surfaced(),
		SurfacedAt:     n.SurfacedAt(),
		ResponseState:  o.Response().String(),
		RespondedAt:    o.RespondedAt(),
		ResponseNote:   o.ResponseNote(),
	}
}
