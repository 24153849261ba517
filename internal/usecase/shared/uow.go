package shared

import (
	"context"

	"offer-relay/internal/domain/offer"
)

//go:generate mockgen -source=uow.go -destination=mock/uow.go -package=mock

type UnitOfWork interface {
	// Within: write transaction, retried on contention
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: single consistent snapshot for reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Offers() OfferRepository
}

type OfferFilter struct {
	State *offer.ResponseState
	SKU   string
	Limit int
}

type OfferRepository interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// InsertNew skips offers whose ID already exists and returns the number of rows written.
	InsertNew(ctx context.Context, offers []*offer.Offer) (int, error)
	FindByID(ctx context.Context, offerID string) (*offer.Offer, error)
	FindByIDForUpdate(ctx context.Context, offerID string) (*offer.Offer, error)
	ListAlertCandidates(ctx context.Context) ([]*offer.Offer, error)
	ListSurfaceable(ctx context.Context, skuKey string) ([]*offer.Offer, error)
	List(ctx context.Context, filter OfferFilter) ([]*offer.Offer, error)
	BackfillSKU(ctx context.Context, itemID, sku string) (int, error)
	SaveNotification(ctx context.Context, o *offer.Offer) error
	// SaveResponse only updates rows still open; otherwise it returns offer.ErrAlreadyResolved.
	SaveResponse(ctx context.Context, o *offer.Offer) error
}
