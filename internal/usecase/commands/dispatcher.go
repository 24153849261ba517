package commands

import (
	"context"
	"log/slog"
	"sync/atomic"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/clock"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/google/uuid"
)

const AlertText = "📢 You have a new offer on an eBay item.\nRun `/checkoffers` to get offer details."

type NotificationSummary struct {
	CycleID       string `json:"cycle_id"`
	Candidates    int    `json:"candidates"`
	Alerted       int    `json:"alerted"`
	Skipped       int    `json:"skipped"`
	Stale         int    `json:"stale"`
	Failed        int    `json:"failed"`
	PersistFailed int    `json:"persist_failed"`
}

//go:generate mockgen -source=dispatcher.go -destination=mock/dispatcher.go -package=mock

type NotificationDispatcher interface {
	RunCycle(ctx context.Context) (*NotificationSummary, error)
}

type notificationDispatcher struct {
	uow       shared.UnitOfWork
	surface   shared.Surface
	directory shared.ChannelDirectory
	locks     *shared.KeyedMutex
	clock     clock.Clock
	logger    *slog.Logger

	running atomic.Bool
}

func NewNotificationDispatcher(
	uow shared.UnitOfWork,
	surface shared.Surface,
	directory shared.ChannelDirectory,
	locks *shared.KeyedMutex,
	clk clock.Clock,
	logger *slog.Logger,
) NotificationDispatcher {
	return &notificationDispatcher{
		uow:       uow,
		surface:   surface,
		directory: directory,
		locks:     locks,
		clock:     clk,
		logger:    logger,
	}
}

// RunCycle alerts each open, unnotified offer once. The alerted flag is persisted right after each
// successful send.
func (d *notificationDispatcher) RunCycle(ctx context.Context) (*NotificationSummary, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, errs.ErrCycleInProgress
	}
	defer d.running.Store(false)

	summary := &NotificationSummary{CycleID: uuid.NewString()}
	log := d.logger.With("cycle_id", summary.CycleID)

	mapping, err := d.directory.Load(ctx)
	if err != nil {
		log.Warn("channel mapping unavailable, every offer will be skipped", "error", err)
		mapping = channel.Mapping{}
	}

	var candidates []*offer.Offer
	err = d.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var lerr error
		candidates, lerr = tx.Offers().ListAlertCandidates(ctx)
		return lerr
	})
	if err != nil {
		return nil, errs.Wrap(err, "list alert candidates")
	}
	summary.Candidates = len(candidates)

	for _, o := range candidates {
		if ctx.Err() != nil {
			break
		}
		channelID, ok := mapping.Lookup(o.SKU())
		if !ok {
			summary.Skipped++
			log.Info("no channel mapped for sku", "offer_id", o.OfferID(), "sku", o.SKU())
			continue
		}
		d.alertOne(ctx, log, channelID, o.OfferID(), summary)
	}

	log.Info("notification cycle finished",
		"candidates", summary.Candidates,
		"alerted", summary.Alerted,
		"skipped", summary.Skipped,
		"stale", summary.Stale,
		"failed", summary.Failed)
	return summary, nil
}

// alertOne re-reads the offer under its lock, so an offer answered or surfaced since the
// candidate snapshot is not alerted.
func (d *notificationDispatcher) alertOne(ctx context.Context, log *slog.Logger, channelID, offerID string, summary *NotificationSummary) {
	unlock := d.locks.Lock(offerID)
	defer unlock()

	var o *offer.Offer
	err := d.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var ferr error
		o, ferr = tx.Offers().FindByID(ctx, offerID)
		return ferr
	})
	if err != nil {
		summary.Failed++
		log.Warn("offer reload failed", "offer_id", offerID, "error", err)
		return
	}
	if !o.NeedsAlert() {
		summary.Stale++
		log.Debug("offer changed since snapshot, alert skipped", "offer_id", offerID, "response_state", o.Response())
		return
	}

	if err := d.surface.PostAlert(ctx, channelID, AlertText); err != nil {
		summary.Failed++
		log.Warn("alert delivery failed", "offer_id", offerID, "channel_id", channelID, "error", err)
		return
	}
	summary.Alerted++

	o.MarkAlerted(d.clock.Now())
	err = d.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Offers().SaveNotification(ctx, o)
	})
	if err != nil {
		summary.PersistFailed++
		log.Error("alert sent but flag not persisted", "offer_id", offerID, "error", err)
		return
	}
	log.Info("alert sent", "offer_id", offerID, "sku", o.SKU(), "channel_id", channelID)
}
