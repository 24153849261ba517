package commands

import (
	"context"
	"log/slog"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"
)

// OfferMerger appends offers that are not yet in the store.
type OfferMerger interface {
	Merge(ctx context.Context, offers []*offer.Offer) (int, error)
}

type reconciler struct {
	uow    shared.UnitOfWork
	logger *slog.Logger
}

func NewReconciler(uow shared.UnitOfWork, logger *slog.Logger) OfferMerger {
	return &reconciler{uow: uow, logger: logger}
}

// Merge never rewrites an existing record. Contention surfaces as errs.ErrStoreContention.
func (r *reconciler) Merge(ctx context.Context, offers []*offer.Offer) (int, error) {
	if len(offers) == 0 {
		return 0, nil
	}

	var inserted int
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		existing, err := tx.Offers().ExistingIDs(ctx, offer.IDs(offers))
		if err != nil {
			return err
		}
		fresh := offer.NewOnly(existing, offers)
		if len(fresh) == 0 {
			inserted = 0
			return nil
		}
		n, err := tx.Offers().InsertNew(ctx, fresh)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(err, "merge offers")
	}

	r.logger.Debug("offers merged", "candidates", len(offers), "inserted", inserted)
	return inserted, nil
}
