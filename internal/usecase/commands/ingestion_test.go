//go:build unit

package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/clock"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/testutil/builder"
	"offer-relay/internal/testutil/memstore"
	"offer-relay/internal/usecase/commands"
	"offer-relay/internal/usecase/shared"
	"offer-relay/internal/usecase/shared/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type IngestionSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	source *mock.MockOfferSource
	store  *memstore.Store
	clock  *clock.MockClock
	cfg    commands.IngestionConfig
}

func TestIngestionSuite(t *testing.T) {
	suite.Run(t, new(IngestionSuite))
}

func (s *IngestionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mock.NewMockOfferSource(s.ctrl)
	s.store = memstore.New()
	s.clock = clock.NewMockClock(fetchedOn)
	s.cfg = commands.IngestionConfig{
		PageSize:               200,
		MaxPages:               600,
		SKUWorkers:             2,
		MaxConsecutiveFailures: 3,
		Location:               time.UTC,
	}
}

func (s *IngestionSuite) pipeline(lock shared.CycleLock) commands.IngestionPipeline {
	logger := discardLogger()
	return commands.NewIngestionPipeline(s.source, commands.NewReconciler(s.store, logger), s.store, lock, s.clock, logger, s.cfg)
}

func (s *IngestionSuite) expectSKUs(skus map[string]string) {
	s.source.EXPECT().GetItemDetail(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, itemID string) (*shared.ItemDetail, error) {
			sku, ok := skus[itemID]
			if !ok {
				return nil, &shared.UpstreamError{Op: "GetItem", Retryable: true, Message: "timeout"}
			}
			return &shared.ItemDetail{ItemID: itemID, SKU: sku}, nil
		}).AnyTimes()
}

func (s *IngestionSuite) twoPageScenario() {
	page1 := builder.NewPageBuilder(1, 3).
		WithItem("1001", builder.RawOfferWith("500000", func(o *shared.RawOffer) { o.CodeType = "SellerCounterOffer" })).
		WithItem("1002", builder.RawOffer("500001")).
		WithItem("1003", builder.RawOffer("500002")).
		Build()
	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(page1, nil)
	s.source.EXPECT().ListOffers(gomock.Any(), 2, 200).Return(builder.NewPageBuilder(2, 3).Build(), nil)
}

func (s *IngestionSuite) TestTwoPagesThenEmpty() {
	s.twoPageScenario()
	s.expectSKUs(map[string]string{"1001": "AA", "1002": "BB", "1003": "CC"})

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(2, summary.PagesFetched)
	s.Equal(2, summary.Extracted)
	s.Equal(2, summary.Inserted)
	s.Equal(3, summary.SKUsResolved)
	s.NotEmpty(summary.CycleID)
	s.Equal(2, s.store.Len())
	s.Equal("BB", s.store.Get("500001").SKU())
	s.Equal("CC", s.store.Get("500002").SKU())
}

func (s *IngestionSuite) TestIdempotentAcrossCycles() {
	s.twoPageScenario()
	s.twoPageScenario()
	s.expectSKUs(map[string]string{"1002": "BB", "1003": "CC"})
	p := s.pipeline(nil)

	first, err := p.RunCycle(context.Background())
	s.Require().NoError(err)
	s.clock.Set(fetchedOn.Add(time.Hour))
	second, err := p.RunCycle(context.Background())
	s.Require().NoError(err)

	s.Equal(2, first.Inserted)
	s.Equal(0, second.Inserted)
	s.Equal(2, s.store.Len())
	s.Equal(fetchedOn, s.store.Get("500001").FetchedOn())
}

func (s *IngestionSuite) TestExistingOfferUntouched() {
	existing := builder.NewOfferBuilder().WithID("500001").With(func(b *builder.OfferBuilder) {
		b.ItemID = "1002"
		b.FetchedOn = fetchedOn.Add(-48 * time.Hour)
		b.Alerted = true
	}).Build()
	s.store = memstore.New(existing)

	page := builder.NewPageBuilder(1, 1).
		WithItem("1002", builder.RawOffer("500001"), builder.RawOffer("500002")).
		Build()
	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(page, nil)
	s.expectSKUs(map[string]string{"1002": "AB-12"})

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(1, summary.Inserted)
	s.Equal(2, s.store.Len())
	kept := s.store.Get("500001")
	s.Equal(fetchedOn.Add(-48*time.Hour), kept.FetchedOn())
	s.True(kept.Notification().ChannelAlerted())
	s.Equal("Vintage Film Camera", kept.Title())
}

func (s *IngestionSuite) TestFailedPageAdvances() {
	gomock.InOrder(
		s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(nil, &shared.UpstreamError{Op: "GetBestOffers", Retryable: true}),
		s.source.EXPECT().ListOffers(gomock.Any(), 2, 200).Return(builder.NewPageBuilder(2, 2).WithItem("1002", builder.RawOffer("500001")).Build(), nil),
	)
	s.expectSKUs(nil)

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(1, summary.PagesFailed)
	s.Equal(1, summary.PagesFetched)
	s.Equal(1, s.store.Len())
	s.Empty(s.store.Get("500001").SKU())
}

func (s *IngestionSuite) TestFailureAckSkipsPayload() {
	bad := builder.NewPageBuilder(1, 2).WithAck(shared.AckFailure).WithError("10007", "internal error").
		WithItem("1001", builder.RawOffer("400001")).Build()
	gomock.InOrder(
		s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(bad, nil),
		s.source.EXPECT().ListOffers(gomock.Any(), 2, 200).Return(builder.NewPageBuilder(2, 2).WithItem("1002", builder.RawOffer("500001")).Build(), nil),
	)
	s.expectSKUs(nil)

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(1, summary.PagesFailed)
	s.Nil(s.store.Get("400001"))
	s.NotNil(s.store.Get("500001"))
}

func (s *IngestionSuite) TestStopsAfterConsecutiveFailures() {
	s.source.EXPECT().ListOffers(gomock.Any(), gomock.Any(), 200).
		Return(nil, errors.New("connection refused")).Times(3)

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(3, summary.PagesFailed)
	s.Equal(0, s.store.Len())
}

func (s *IngestionSuite) TestPageCap() {
	s.cfg.MaxPages = 2
	for page := 1; page <= 2; page++ {
		p := builder.NewPageBuilder(page, 50).WithItem("100"+string(rune('0'+page)), builder.RawOffer("50000"+string(rune('0'+page)))).Build()
		s.source.EXPECT().ListOffers(gomock.Any(), page, 200).Return(p, nil)
	}
	s.expectSKUs(nil)

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.True(summary.PageCapReached)
	s.Equal(2, summary.PagesFetched)
	s.Equal(2, s.store.Len())
}

func (s *IngestionSuite) TestTotalPagesFixedAtFirstPage() {
	gomock.InOrder(
		s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(builder.NewPageBuilder(1, 2).WithItem("1001", builder.RawOffer("1")).Build(), nil),
		s.source.EXPECT().ListOffers(gomock.Any(), 2, 200).Return(builder.NewPageBuilder(2, 9).WithItem("1002", builder.RawOffer("2")).Build(), nil),
	)
	s.expectSKUs(nil)

	summary, err := s.pipeline(nil).RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(2, summary.PagesFetched)
}

func (s *IngestionSuite) TestContentionDefersToNextCycle() {
	s.twoPageScenario()
	s.expectSKUs(map[string]string{"1002": "BB", "1003": "CC"})
	s.store.FailWrites = errs.Wrap(errs.ErrStoreContention, "database is locked")
	p := s.pipeline(nil)

	summary, err := p.RunCycle(context.Background())
	s.Require().NoError(err)
	s.Equal(2, summary.Deferred)
	s.Equal(0, s.store.Len())

	s.store.FailWrites = nil
	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(builder.NewPageBuilder(1, 1).Build(), nil)

	summary, err = p.RunCycle(context.Background())
	s.Require().NoError(err)
	s.Equal(2, summary.Inserted)
	s.Equal(2, s.store.Len())
	s.Equal("BB", s.store.Get("500001").SKU())
}

func (s *IngestionSuite) TestRepeatedContentionCountsDistinctOffers() {
	s.twoPageScenario()
	s.twoPageScenario()
	s.expectSKUs(map[string]string{"1002": "BB", "1003": "CC"})
	s.store.FailWrites = errs.Wrap(errs.ErrStoreContention, "database is locked")
	p := s.pipeline(nil)

	_, err := p.RunCycle(context.Background())
	s.Require().NoError(err)
	summary, err := p.RunCycle(context.Background())

	s.Require().NoError(err)
	s.Equal(2, summary.Deferred)
}

// storeRejecting fails every batch holding offerID the way a column overflow would.
type storeRejecting struct {
	next    commands.OfferMerger
	offerID string
}

func (m storeRejecting) Merge(ctx context.Context, offers []*offer.Offer) (int, error) {
	for _, o := range offers {
		if o.OfferID() == m.offerID {
			return 0, errs.Wrap(errs.ErrDatabaseOperationFailed, "numeric field overflow")
		}
	}
	return m.next.Merge(ctx, offers)
}

func (s *IngestionSuite) TestUnstorableOfferIsIsolated() {
	logger := discardLogger()
	merger := storeRejecting{next: commands.NewReconciler(s.store, logger), offerID: "bad"}
	p := commands.NewIngestionPipeline(s.source, merger, s.store, nil, s.clock, logger, s.cfg)
	s.expectSKUs(map[string]string{"1002": "BB", "1003": "CC"})

	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(builder.NewPageBuilder(1, 1).
		WithItem("1002", builder.RawOffer("bad"), builder.RawOffer("500001")).
		Build(), nil)

	first, err := p.RunCycle(context.Background())
	s.Require().NoError(err)
	s.Equal(1, first.Inserted)
	s.Equal(1, first.Dropped)
	s.Equal(0, first.Deferred)
	s.Equal(1, s.store.Len())
	s.Equal("BB", s.store.Get("500001").SKU())

	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(builder.NewPageBuilder(1, 1).
		WithItem("1003", builder.RawOffer("500002")).
		Build(), nil)

	second, err := p.RunCycle(context.Background())
	s.Require().NoError(err)
	s.Equal(1, second.Inserted)
	s.Equal(0, second.Dropped)
	s.Equal(2, s.store.Len())
	s.Nil(s.store.Get("bad"))
}

func (s *IngestionSuite) TestLockHeldElsewhere() {
	lock := mock.NewMockCycleLock(s.ctrl)
	lock.EXPECT().TryAcquire(gomock.Any()).Return(nil, shared.ErrCycleLockHeld)

	_, err := s.pipeline(lock).RunCycle(context.Background())

	s.Require().ErrorIs(err, errs.ErrCycleInProgress)
}

func (s *IngestionSuite) TestLockReleased() {
	lock := mock.NewMockCycleLock(s.ctrl)
	released := false
	lock.EXPECT().TryAcquire(gomock.Any()).Return(func() { released = true }, nil)
	s.source.EXPECT().ListOffers(gomock.Any(), 1, 200).Return(builder.NewPageBuilder(1, 1).Build(), nil)

	_, err := s.pipeline(lock).RunCycle(context.Background())

	s.Require().NoError(err)
	s.True(released)
}

func TestIngestion_RejectsOverlappingCycles(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mock.NewMockOfferSource(ctrl)
	store := memstore.New()
	logger := discardLogger()
	p := commands.NewIngestionPipeline(source, commands.NewReconciler(store, logger), store, nil,
		clock.NewMockClock(fetchedOn), logger, commands.IngestionConfig{MaxPages: 1})

	entered := make(chan struct{})
	release := make(chan struct{})
	source.EXPECT().ListOffers(gomock.Any(), 1, gomock.Any()).DoAndReturn(
		func(context.Context, int, int) (*shared.OfferPage, error) {
			close(entered)
			<-release
			return builder.NewPageBuilder(1, 1).Build(), nil
		})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := p.RunCycle(context.Background())
		assert.NoError(t, err)
	}()

	<-entered
	_, err := p.RunCycle(context.Background())
	require.ErrorIs(t, err, errs.ErrCycleInProgress)

	close(release)
	wg.Wait()
}
