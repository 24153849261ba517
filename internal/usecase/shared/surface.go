package shared

import (
	"context"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
)

//go:generate mockgen -source=surface.go -destination=mock/surface.go -package=mock

var ErrCycleLockHeld = errs.New("ingestion lock is held by another process")

// OfferCard is the rendered detail view of one offer.
type OfferCard struct {
	OfferID      string
	ItemID       string
	SKU          string
	Title        string
	OfferAmount  string
	ListingPrice string
	Currency     string
	BuyerUserID  string
	ExpiresOn    string
	BuyerMessage string
	ImageURL     string
}

// Surface is the chat platform the offers are shown on.
type Surface interface {
	PostAlert(ctx context.Context, channelID, text string) error
	PostOfferCard(ctx context.Context, channelID string, card OfferCard) (messageID string, err error)
	RetireOfferCard(ctx context.Context, ref offer.SurfaceRef) error
}

type ChannelDirectory interface {
	Load(ctx context.Context) (channel.Mapping, error)
}

// CycleLock guards ingestion across processes.
type CycleLock interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}
