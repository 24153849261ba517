package commands

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/clock"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type IngestionConfig struct {
	PageSize               int
	MaxPages               int
	SKUWorkers             int
	MaxConsecutiveFailures int
	Location               *time.Location
}

type IngestionSummary struct {
	CycleID        string    `json:"cycle_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	PagesFetched   int       `json:"pages_fetched"`
	PagesFailed    int       `json:"pages_failed"`
	PageCapReached bool      `json:"page_cap_reached"`
	Extracted      int       `json:"extracted"`
	Inserted       int       `json:"inserted"`
	Deferred       int       `json:"deferred"`
	Dropped        int       `json:"dropped"`
	SKUsResolved   int       `json:"skus_resolved"`
	SKUsBackfilled int       `json:"skus_backfilled"`
}

//go:generate mockgen -source=ingestion.go -destination=mock/ingestion.go -package=mock

type IngestionPipeline interface {
	RunCycle(ctx context.Context) (*IngestionSummary, error)
}

type ingestionPipeline struct {
	source shared.OfferSource
	merger OfferMerger
	uow    shared.UnitOfWork
	lock   shared.CycleLock
	clock  clock.Clock
	logger *slog.Logger
	cfg    IngestionConfig

	running atomic.Bool

	mu       sync.Mutex
	deferred []*offer.Offer
}

// NewIngestionPipeline builds the pipeline. lock may be nil when only one process runs ingestion.
func NewIngestionPipeline(
	source shared.OfferSource,
	merger OfferMerger,
	uow shared.UnitOfWork,
	lock shared.CycleLock,
	clk clock.Clock,
	logger *slog.Logger,
	cfg IngestionConfig,
) IngestionPipeline {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 600
	}
	if cfg.SKUWorkers <= 0 {
		cfg.SKUWorkers = 1
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ingestionPipeline{
		source: source,
		merger: merger,
		uow:    uow,
		lock:   lock,
		clock:  clk,
		logger: logger,
		cfg:    cfg,
	}
}

// RunCycle fetches every page, resolves SKUs and merges the result. Overlapping calls fail with
// errs.ErrCycleInProgress.
func (p *ingestionPipeline) RunCycle(ctx context.Context) (*IngestionSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, errs.ErrCycleInProgress
	}
	defer p.running.Store(false)

	if p.lock != nil {
		release, err := p.lock.TryAcquire(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrCycleLockHeld) {
				return nil, errs.Mark(err, errs.ErrCycleInProgress)
			}
			return nil, errs.Wrap(err, "acquire ingestion lock")
		}
		defer release()
	}

	summary := &IngestionSummary{CycleID: uuid.NewString(), StartedAt: p.clock.Now()}
	log := p.logger.With("cycle_id", summary.CycleID)
	log.Info("ingestion cycle started")

	offers, itemIDs := p.fetchPages(ctx, log, summary)
	summary.Extracted = len(offers)

	skus := p.resolveSKUs(ctx, log, itemIDs)
	summary.SKUsResolved = len(skus)
	for _, o := range offers {
		o.AttachSKU(skus[o.ItemID()])
	}

	candidates := append(p.takeDeferred(), offers...)
	inserted, err := p.merger.Merge(ctx, candidates)
	if err != nil {
		if errors.Is(err, errs.ErrStoreContention) {
			summary.Deferred = p.keepDeferred(candidates)
			summary.FinishedAt = p.clock.Now()
			log.Warn("offer store busy, merge deferred to next cycle", "deferred", summary.Deferred, "error", err)
			return summary, nil
		}
		log.Warn("batch merge failed, merging offers one at a time", "candidates", len(candidates), "error", err)
		var retry []*offer.Offer
		inserted, retry = p.mergeEach(ctx, log, candidates, summary)
		if len(retry) > 0 {
			summary.Deferred = p.keepDeferred(retry)
		}
	}
	summary.Inserted = inserted

	summary.SKUsBackfilled = p.backfillSKUs(ctx, log, skus)
	summary.FinishedAt = p.clock.Now()

	log.Info("ingestion cycle finished",
		"pages_fetched", summary.PagesFetched,
		"pages_failed", summary.PagesFailed,
		"extracted", summary.Extracted,
		"inserted", summary.Inserted,
		"deferred", summary.Deferred,
		"dropped", summary.Dropped,
		"skus_resolved", summary.SKUsResolved,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary, nil
}

// fetchPages walks pages in increasing order. The total page count is taken from the first
// successful page and not revised afterwards.
func (p *ingestionPipeline) fetchPages(ctx context.Context, log *slog.Logger, summary *IngestionSummary) ([]*offer.Offer, []string) {
	var (
		offers      []*offer.Offer
		itemIDs     []string
		seenItems   = make(map[string]struct{})
		totalPages  int
		consecutive int
		page        = 1
	)
	fetchedOn := p.clock.Now()

	for ; page <= p.cfg.MaxPages; page++ {
		if totalPages > 0 && page > totalPages {
			break
		}
		if ctx.Err() != nil {
			log.Warn("ingestion cancelled", "page", page, "error", ctx.Err())
			break
		}

		res, err := p.source.ListOffers(ctx, page, p.cfg.PageSize)
		if err == nil && res != nil && !res.Ack.Usable() {
			log.Warn("page rejected by upstream", "page", page, "ack", res.Ack, "errors", res.Errors)
			err = errs.New("unusable ack " + string(res.Ack))
		}
		if err != nil || res == nil {
			summary.PagesFailed++
			consecutive++
			if err != nil {
				log.Warn("page fetch failed", "page", page, "error", err)
			}
			if totalPages == 0 && consecutive >= p.cfg.MaxConsecutiveFailures {
				log.Error("no page succeeded, stopping cycle early", "failures", consecutive)
				return offers, itemIDs
			}
			continue
		}

		consecutive = 0
		summary.PagesFetched++
		if totalPages == 0 {
			totalPages = max(res.TotalPages, 1)
		}
		if len(res.Items) == 0 {
			log.Info("empty page, pagination complete", "page", page)
			return offers, itemIDs
		}

		ext := Extract(res, p.cfg.Location, fetchedOn)
		offers = append(offers, ext.Offers...)
		for _, id := range ext.ItemIDs {
			if _, ok := seenItems[id]; ok {
				continue
			}
			seenItems[id] = struct{}{}
			itemIDs = append(itemIDs, id)
		}
		log.Debug("page extracted", "page", page, "listings", len(res.Items), "offers", len(ext.Offers), "skipped", ext.Skipped)
	}

	if page > p.cfg.MaxPages && (totalPages == 0 || totalPages > p.cfg.MaxPages) {
		summary.PageCapReached = true
		log.Warn("page cap reached", "max_pages", p.cfg.MaxPages, "total_pages", totalPages)
	}
	return offers, itemIDs
}

// resolveSKUs looks up every item. Failed lookups are left out of the result.
func (p *ingestionPipeline) resolveSKUs(ctx context.Context, log *slog.Logger, itemIDs []string) map[string]string {
	var mu sync.Mutex
	skus := make(map[string]string, len(itemIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SKUWorkers)
	for _, itemID := range itemIDs {
		g.Go(func() error {
			detail, err := p.source.GetItemDetail(gctx, itemID)
			if err != nil {
				log.Warn("sku lookup failed", "item_id", itemID, "error", err)
				return nil
			}
			if detail == nil || detail.SKU == "" {
				return nil
			}
			mu.Lock()
			skus[itemID] = detail.SKU
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return skus
}

func (p *ingestionPipeline) backfillSKUs(ctx context.Context, log *slog.Logger, skus map[string]string) int {
	if len(skus) == 0 {
		return 0
	}
	var total int
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		total = 0
		for itemID, sku := range skus {
			n, err := tx.Offers().BackfillSKU(ctx, itemID, sku)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		log.Warn("sku backfill failed", "error", err)
		return 0
	}
	return total
}

// mergeEach isolates offers the store refuses. Contended or cancelled offers are returned for
// the next cycle; any other failure drops the offer, which upstream still lists while pending.
func (p *ingestionPipeline) mergeEach(ctx context.Context, log *slog.Logger, candidates []*offer.Offer, summary *IngestionSummary) (int, []*offer.Offer) {
	var (
		inserted int
		retry    []*offer.Offer
	)
	for _, o := range candidates {
		if ctx.Err() != nil {
			retry = append(retry, o)
			continue
		}
		n, err := p.merger.Merge(ctx, []*offer.Offer{o})
		switch {
		case err == nil:
			inserted += n
		case errors.Is(err, errs.ErrStoreContention) || ctx.Err() != nil:
			retry = append(retry, o)
		default:
			summary.Dropped++
			log.Error("offer rejected by store, dropped", "offer_id", o.OfferID(), "item_id", o.ItemID(), "error", err)
		}
	}
	return inserted, retry
}

func (p *ingestionPipeline) takeDeferred() []*offer.Offer {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.deferred
	p.deferred = nil
	return d
}

// keepDeferred stores offers for the next cycle, one per ID, and returns how many are held.
func (p *ingestionPipeline) keepDeferred(offers []*offer.Offer) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deferred = offer.NewOnly(nil, offers)
	return len(p.deferred)
}
