//go:build unit || e2e

package repository_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/testutil/builder"
	"offer-relay/internal/usecase/shared"

	"github.com/stretchr/testify/suite"
)

// OfferRepositorySuite runs the same expectations against every store driver.
type OfferRepositorySuite struct {
	suite.Suite
	newUoW func() shared.UnitOfWork
	uow    shared.UnitOfWork
	ctx    context.Context
}

func (s *OfferRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.uow = s.newUoW()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func displayLocation() *time.Location {
	loc, _ := time.LoadLocation("America/Los_Angeles")
	return loc
}

func (s *OfferRepositorySuite) insert(offers ...*offer.Offer) int {
	var n int
	err := s.uow.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		n, err = tx.Offers().InsertNew(ctx, offers)
		return err
	})
	s.Require().NoError(err)
	return n
}

func (s *OfferRepositorySuite) find(id string) (*offer.Offer, error) {
	var o *offer.Offer
	err := s.uow.WithinReadOnly(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		o, err = tx.Offers().FindByID(ctx, id)
		return err
	})
	return o, err
}

func (s *OfferRepositorySuite) write(fn func(ctx context.Context, repo shared.OfferRepository) error) error {
	return s.uow.Within(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		return fn(ctx, tx.Offers())
	})
}

func ids(offers []*offer.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.OfferID())
	}
	return out
}

func (s *OfferRepositorySuite) TestInsertNewSkipsExisting() {
	first := builder.NewOfferBuilder().WithID("1").Build()
	second := builder.NewOfferBuilder().WithID("2").Build()
	s.Equal(2, s.insert(first, second))

	changed := builder.NewOfferBuilder().WithID("1").With(func(b *builder.OfferBuilder) {
		b.OfferAmount = "1.00"
	}).Build()
	third := builder.NewOfferBuilder().WithID("3").Build()
	s.Equal(1, s.insert(changed, third))

	stored, err := s.find("1")
	s.Require().NoError(err)
	s.Equal("95.5", stored.OfferAmount().Amount().String(), "existing record must not be rewritten")

	err = s.uow.WithinReadOnly(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		existing, err := tx.Offers().ExistingIDs(ctx, []string{"1", "3", "404"})
		s.Require().NoError(err)
		s.Len(existing, 2)
		s.Contains(existing, "1")
		s.Contains(existing, "3")
		return nil
	})
	s.Require().NoError(err)
}

func (s *OfferRepositorySuite) TestRoundTrip() {
	in := builder.NewOfferBuilder().WithID("42").With(func(b *builder.OfferBuilder) {
		b.Quantity = 3
		b.BuyerMessage = ""
	}).Build()
	s.insert(in)

	got, err := s.find("42")
	s.Require().NoError(err)
	s.Equal(in.ItemID(), got.ItemID())
	s.Equal("AB-12", got.SKU())
	s.Equal(in.SKUKey(), got.SKUKey())
	s.Equal(in.Title(), got.Title())
	s.True(in.BINPrice().Amount().Equal(got.BINPrice().Amount()))
	s.Equal("USD", got.OfferAmount().Currency())
	s.Equal("$95.50", got.OfferAmount().Display())
	s.Equal(3, got.Quantity())
	s.Equal("2025-03-01 12:00 PM PST", got.Expiration().String())
	at, ok := got.Expiration().At()
	s.Require().True(ok)
	s.True(at.Equal(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)))
	s.Equal(offer.TypeBuyerBestOffer, got.OfferType())
	s.Equal(offer.StatusPending, got.Status())
	s.True(in.FetchedOn().Equal(got.FetchedOn()))
	s.Equal(offer.ResponseOpen, got.Response())
	s.False(got.Notification().ChannelAlerted())
	s.Nil(got.RespondedAt())
}

func (s *OfferRepositorySuite) TestFindByIDNotFound() {
	_, err := s.find("missing")
	s.Require().Error(err)
	s.True(errors.Is(err, errs.ErrOfferNotFound))
}

func (s *OfferRepositorySuite) TestNotificationFlagsOnlyMoveForward() {
	o := builder.NewOfferBuilder().WithID("7").Build()
	s.insert(o)

	alertedAt := time.Date(2025, 2, 27, 11, 0, 0, 0, time.UTC)
	o.MarkAlerted(alertedAt)
	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveNotification(ctx, o)
	}))

	stale := builder.NewOfferBuilder().WithID("7").Build()
	stale.MarkSurfaced(offer.SurfaceRef{ChannelID: "1111", MessageID: "m7"}, alertedAt.Add(time.Hour))
	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveNotification(ctx, stale)
	}))

	got, err := s.find("7")
	s.Require().NoError(err)
	n := got.Notification()
	s.True(n.ChannelAlerted())
	s.Require().NotNil(n.AlertedAt())
	s.True(n.AlertedAt().Equal(alertedAt))
	s.True(n.Surfaced())
	s.Equal(offer.SurfaceRef{ChannelID: "1111", MessageID: "m7"}, n.Surface())
}

func (s *OfferRepositorySuite) TestSaveNotificationUnknownOffer() {
	o := builder.NewOfferBuilder().WithID("ghost").Build()
	o.MarkAlerted(time.Now())
	err := s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveNotification(ctx, o)
	})
	s.True(errors.Is(err, errs.ErrOfferNotFound))
}

func (s *OfferRepositorySuite) TestAlertCandidates() {
	base := time.Date(2025, 2, 27, 10, 0, 0, 0, time.UTC)
	s.insert(
		builder.NewOfferBuilder().WithID("b").With(func(b *builder.OfferBuilder) { b.FetchedOn = base.Add(time.Minute) }).Build(),
		builder.NewOfferBuilder().WithID("a").With(func(b *builder.OfferBuilder) { b.FetchedOn = base.Add(time.Minute) }).Build(),
		builder.NewOfferBuilder().WithID("c").With(func(b *builder.OfferBuilder) { b.FetchedOn = base }).Build(),
		builder.NewOfferBuilder().WithID("alerted").Build(),
		builder.NewOfferBuilder().WithID("surfaced").Build(),
		builder.NewOfferBuilder().WithID("accepted").Build(),
	)

	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		alerted := builder.NewOfferBuilder().WithID("alerted").Build()
		alerted.MarkAlerted(base)
		if err := repo.SaveNotification(ctx, alerted); err != nil {
			return err
		}
		surfaced := builder.NewOfferBuilder().WithID("surfaced").Build()
		surfaced.MarkSurfaced(offer.SurfaceRef{ChannelID: "1", MessageID: "2"}, base)
		if err := repo.SaveNotification(ctx, surfaced); err != nil {
			return err
		}
		accepted := builder.NewOfferBuilder().WithID("accepted").Build()
		if err := accepted.Resolve(offer.ResponseAccepted, base, ""); err != nil {
			return err
		}
		return repo.SaveResponse(ctx, accepted)
	}))

	err := s.uow.WithinReadOnly(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		got, err := tx.Offers().ListAlertCandidates(ctx)
		s.Require().NoError(err)
		s.Equal([]string{"c", "a", "b"}, ids(got))
		return nil
	})
	s.Require().NoError(err)
}

func (s *OfferRepositorySuite) TestListSurfaceableBySKUKey() {
	s.insert(
		builder.NewOfferBuilder().WithID("1").WithSKU("AB-12").Build(),
		builder.NewOfferBuilder().WithID("2").WithSKU("ab 12").Build(),
		builder.NewOfferBuilder().WithID("3").WithSKU("XY-1").Build(),
		builder.NewOfferBuilder().WithID("4").WithSKU("").Build(),
	)

	key := builder.NewOfferBuilder().Build().SKUKey()
	err := s.uow.WithinReadOnly(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		got, err := tx.Offers().ListSurfaceable(ctx, key)
		s.Require().NoError(err)
		s.Equal([]string{"1", "2"}, ids(got))
		return nil
	})
	s.Require().NoError(err)
}

func (s *OfferRepositorySuite) TestSaveResponseIsConditional() {
	o := builder.NewOfferBuilder().WithID("9").Build()
	s.insert(o)

	at := time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(o.Resolve(offer.ResponseCountered, at, "counter 42.50"))
	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveResponse(ctx, o)
	}))

	again := builder.NewOfferBuilder().WithID("9").Build()
	s.Require().NoError(again.Resolve(offer.ResponseAccepted, at, ""))
	err := s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveResponse(ctx, again)
	})
	s.True(errors.Is(err, offer.ErrAlreadyResolved))

	got, err := s.find("9")
	s.Require().NoError(err)
	s.Equal(offer.ResponseCountered, got.Response())
	s.Equal("counter 42.50", got.ResponseNote())
	s.Require().NotNil(got.RespondedAt())
	s.True(got.RespondedAt().Equal(at))
}

func (s *OfferRepositorySuite) TestSaveResponseUnknownOffer() {
	o := builder.NewOfferBuilder().WithID("ghost").Build()
	s.Require().NoError(o.Resolve(offer.ResponseDeclined, time.Now(), ""))
	err := s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		return repo.SaveResponse(ctx, o)
	})
	s.True(errors.Is(err, errs.ErrOfferNotFound))
}

func (s *OfferRepositorySuite) TestBackfillSKUOnlyFillsBlank() {
	s.insert(
		builder.NewOfferBuilder().WithID("1").WithSKU("").Build(),
		builder.NewOfferBuilder().WithID("2").WithSKU("").Build(),
		builder.NewOfferBuilder().WithID("3").WithSKU("KEEP").Build(),
		builder.NewOfferBuilder().WithID("4").WithSKU("").With(func(b *builder.OfferBuilder) { b.ItemID = "other" }).Build(),
	)

	var n int
	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		var err error
		n, err = repo.BackfillSKU(ctx, "110011", "New Sku")
		return err
	}))
	s.Equal(2, n)

	got, err := s.find("1")
	s.Require().NoError(err)
	s.Equal("New Sku", got.SKU())
	s.Equal("newsku", got.SKUKey())

	kept, err := s.find("3")
	s.Require().NoError(err)
	s.Equal("KEEP", kept.SKU())

	other, err := s.find("4")
	s.Require().NoError(err)
	s.Empty(other.SKU())
}

func (s *OfferRepositorySuite) TestListFilters() {
	s.insert(
		builder.NewOfferBuilder().WithID("1").Build(),
		builder.NewOfferBuilder().WithID("2").Build(),
		builder.NewOfferBuilder().WithID("3").WithSKU("OTHER").Build(),
	)
	s.Require().NoError(s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		o := builder.NewOfferBuilder().WithID("2").Build()
		if err := o.Resolve(offer.ResponseDeclined, time.Now(), ""); err != nil {
			return err
		}
		return repo.SaveResponse(ctx, o)
	}))

	open := offer.ResponseOpen
	err := s.uow.WithinReadOnly(s.ctx, func(ctx context.Context, tx shared.Tx) error {
		all, err := tx.Offers().List(ctx, shared.OfferFilter{})
		s.Require().NoError(err)
		s.Equal([]string{"1", "2", "3"}, ids(all))

		opened, err := tx.Offers().List(ctx, shared.OfferFilter{State: &open, SKU: "AB-12"})
		s.Require().NoError(err)
		s.Equal([]string{"1"}, ids(opened))

		limited, err := tx.Offers().List(ctx, shared.OfferFilter{Limit: 2})
		s.Require().NoError(err)
		s.Len(limited, 2)
		return nil
	})
	s.Require().NoError(err)
}

func (s *OfferRepositorySuite) TestWithinRollsBackOnError() {
	boom := errors.New("boom")
	err := s.write(func(ctx context.Context, repo shared.OfferRepository) error {
		if _, err := repo.InsertNew(ctx, []*offer.Offer{builder.NewOfferBuilder().WithID("r1").Build()}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.find("r1")
	s.True(errors.Is(err, errs.ErrOfferNotFound))
}
