package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/clock"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"

	"github.com/cenkalti/backoff/v4"
)

const (
	MessageMissingOffer  = "❌ Missing offer details, cannot proceed."
	MessageNoOffers      = "📭 No new offers found."
	MessageOffersSent    = "✅ Offers sent to this channel."
	MessageOffersLocked  = "⚠️ Offers sent, but the offer store was locked and not updated."
	MessagePostFailed    = "❌ Could not post offers to this channel."
	messageStoreNotSaved = "\n⚠️ The offer store could not be updated."
)

// unavailableCodes mark an offer that expired, was withdrawn, or was already answered.
var unavailableCodes = map[string]struct{}{
	"20136": {},
	"21929": {},
	"20142": {},
	"20143": {},
}

func IsUnavailableCode(code string) bool {
	_, ok := unavailableCodes[code]
	return ok
}

type ResponseConfig struct {
	CounterCurrency string
	ImageRetryDelay time.Duration
}

type ResponseOutcome struct {
	OfferID string
	From    offer.ResponseState
	To      offer.ResponseState
	Reply   string
	Effects []offer.Effect
	// Err explains why the state did not move to a successful terminal state.
	Err         error
	Card        offer.SurfaceRef
	CardRetired bool
}

// Retire reports whether the offer's card should disappear.
func (o *ResponseOutcome) Retire() bool {
	for _, e := range o.Effects {
		if e.Kind == offer.EffectRetireCard {
			return true
		}
	}
	return false
}

type SurfaceRequest struct {
	ChannelID   string
	ChannelName string
}

type SurfaceResult struct {
	Matched      int
	Posted       int
	Failed       int
	StoreUpdated bool
	Reply        string
}

//go:generate mockgen -source=response.go -destination=mock/response.go -package=mock

type ResponseEngine interface {
	Respond(ctx context.Context, cmd offer.Command) (*ResponseOutcome, error)
	SurfaceOffers(ctx context.Context, req SurfaceRequest) (*SurfaceResult, error)
}

type responseEngine struct {
	source  shared.OfferSource
	uow     shared.UnitOfWork
	surface shared.Surface
	locks   *shared.KeyedMutex
	clock   clock.Clock
	logger  *slog.Logger
	cfg     ResponseConfig
}

func NewResponseEngine(
	source shared.OfferSource,
	uow shared.UnitOfWork,
	surface shared.Surface,
	locks *shared.KeyedMutex,
	clk clock.Clock,
	logger *slog.Logger,
	cfg ResponseConfig,
) ResponseEngine {
	if cfg.CounterCurrency == "" {
		cfg.CounterCurrency = "USD"
	}
	if cfg.ImageRetryDelay <= 0 {
		cfg.ImageRetryDelay = 500 * time.Millisecond
	}
	return &responseEngine{
		source:  source,
		uow:     uow,
		surface: surface,
		locks:   locks,
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
	}
}

// Respond applies a user action. The offer is locked for the upstream call and the write that
// follows it, and the store is updated before the reply is returned.
func (e *responseEngine) Respond(ctx context.Context, cmd offer.Command) (*ResponseOutcome, error) {
	log := e.logger.With("offer_id", cmd.OfferID, "action", cmd.Action)
	if cmd.OfferID == "" {
		return &ResponseOutcome{Reply: MessageMissingOffer, Err: errs.ErrOfferNotFound}, nil
	}

	unlock := e.locks.Lock(cmd.OfferID)
	defer unlock()

	current, err := e.load(ctx, cmd.OfferID)
	if err != nil {
		if errors.Is(err, errs.ErrOfferNotFound) {
			log.Warn("action on unknown offer")
			return &ResponseOutcome{OfferID: cmd.OfferID, Reply: MessageMissingOffer, Err: errs.ErrOfferNotFound}, nil
		}
		return nil, err
	}
	cmd.ItemID = current.ItemID()

	plan := offer.Plan(current.Response(), cmd)
	if !plan.NeedsUpstream() {
		log.Info("action rejected before upstream", "state", current.Response(), "reason", plan.Err)
		return &ResponseOutcome{
			OfferID: cmd.OfferID,
			From:    plan.From,
			To:      plan.To,
			Reply:   plan.Reply(),
			Effects: plan.Effects,
			Err:     plan.Err,
			Card:    current.Notification().Surface(),
		}, nil
	}

	req := shared.RespondRequest{
		ItemID:       current.ItemID(),
		OfferID:      current.OfferID(),
		Action:       cmd.Action,
		CounterPrice: plan.CounterPrice,
		Currency:     e.cfg.CounterCurrency,
		Quantity:     offer.CounterQuantity,
	}
	callErr := e.source.RespondToOffer(ctx, req)
	outcome, detail, note := classify(callErr)
	settled := offer.Settle(current.Response(), cmd, outcome, detail)

	result := &ResponseOutcome{
		OfferID: cmd.OfferID,
		From:    settled.From,
		To:      settled.To,
		Reply:   settled.Reply(),
		Effects: settled.Effects,
		Card:    current.Notification().Surface(),
	}
	switch outcome {
	case offer.OutcomeSuccess:
		log.Info("upstream accepted action", "state", settled.To)
	case offer.OutcomeUnavailable:
		result.Err = callErr
		log.Info("offer no longer available", "code", note)
	default:
		result.Err = callErr
		log.Warn("upstream rejected action", "error", callErr)
	}

	if settled.Has(offer.EffectPersist) {
		if note == "" && plan.CounterPrice != nil {
			note = "counter " + plan.CounterPrice.StringFixed(2)
		}
		if err := e.persistResponse(ctx, cmd.OfferID, settled.To, note); err != nil {
			if errors.Is(err, offer.ErrAlreadyResolved) {
				log.Warn("offer resolved concurrently", "state", settled.To)
			} else {
				log.Error("response not persisted", "state", settled.To, "error", err)
				result.Reply += messageStoreNotSaved
				result.Err = err
			}
		}
	}

	if settled.Has(offer.EffectRetireCard) && !result.Card.IsZero() {
		if err := e.surface.RetireOfferCard(ctx, result.Card); err != nil {
			log.Warn("offer card not retired", "channel_id", result.Card.ChannelID, "message_id", result.Card.MessageID, "error", err)
		} else {
			result.CardRetired = true
		}
	}
	return result, nil
}

func (e *responseEngine) load(ctx context.Context, offerID string) (*offer.Offer, error) {
	var o *offer.Offer
	err := e.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var ferr error
		o, ferr = tx.Offers().FindByID(ctx, offerID)
		return ferr
	})
	return o, err
}

func (e *responseEngine) persistResponse(ctx context.Context, offerID string, to offer.ResponseState, note string) error {
	return e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		o, err := tx.Offers().FindByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if err := o.Resolve(to, e.clock.Now(), note); err != nil {
			return err
		}
		return tx.Offers().SaveResponse(ctx, o)
	})
}

// classify maps an upstream error to an outcome, the text shown to the user and a note to store.
func classify(err error) (offer.Outcome, string, string) {
	if err == nil {
		return offer.OutcomeSuccess, "", ""
	}
	if ue, ok := shared.AsUpstreamError(err); ok {
		if IsUnavailableCode(ue.Code) {
			return offer.OutcomeUnavailable, ue.Detail(), "upstream code " + ue.Code
		}
		return offer.OutcomeRejected, ue.Detail(), ""
	}
	return offer.OutcomeRejected, err.Error(), ""
}

// SurfaceOffers posts a card for every open, not yet surfaced offer whose SKU matches the channel.
func (e *responseEngine) SurfaceOffers(ctx context.Context, req SurfaceRequest) (*SurfaceResult, error) {
	log := e.logger.With("channel_id", req.ChannelID, "channel_name", req.ChannelName)
	result := &SurfaceResult{StoreUpdated: true}

	key := channel.NormalizeSKU(req.ChannelName)
	if key == "" {
		result.Reply = MessageNoOffers
		return result, nil
	}

	var candidates []*offer.Offer
	err := e.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var lerr error
		candidates, lerr = tx.Offers().ListSurfaceable(ctx, key)
		return lerr
	})
	if err != nil {
		return nil, errs.Wrap(err, "list surfaceable offers")
	}
	result.Matched = len(candidates)
	if len(candidates) == 0 {
		log.Info("no offers to surface", "sku_key", key)
		result.Reply = MessageNoOffers
		return result, nil
	}

	for _, o := range candidates {
		if ctx.Err() != nil {
			break
		}
		posted, stored := e.surfaceOne(ctx, log, req.ChannelID, o.OfferID())
		if !posted {
			continue
		}
		result.Posted++
		if !stored {
			result.StoreUpdated = false
		}
	}
	result.Failed = result.Matched - result.Posted

	switch {
	case result.Posted == 0 && result.Failed > 0:
		result.Reply = MessagePostFailed
	case result.Posted == 0:
		result.Reply = MessageNoOffers
	case !result.StoreUpdated:
		result.Reply = MessageOffersLocked
	default:
		result.Reply = MessageOffersSent
	}
	return result, nil
}

func (e *responseEngine) surfaceOne(ctx context.Context, log *slog.Logger, channelID, offerID string) (posted, stored bool) {
	unlock := e.locks.Lock(offerID)
	defer unlock()

	o, err := e.load(ctx, offerID)
	if err != nil {
		log.Warn("offer vanished before surfacing", "offer_id", offerID, "error", err)
		return false, false
	}
	if !o.IsOpen() || o.Notification().Surfaced() {
		return false, false
	}

	card := BuildCard(o, e.fetchImage(ctx, log, o.ItemID()))
	messageID, err := e.surface.PostOfferCard(ctx, channelID, card)
	if err != nil {
		log.Warn("offer card not posted", "offer_id", offerID, "error", err)
		return false, false
	}

	o.MarkSurfaced(offer.SurfaceRef{ChannelID: channelID, MessageID: messageID}, e.clock.Now())
	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Offers().SaveNotification(ctx, o)
	})
	if err != nil {
		log.Error("offer card posted but surfaced flag not persisted", "offer_id", offerID, "error", err)
		return true, false
	}
	log.Info("offer surfaced", "offer_id", offerID, "message_id", messageID)
	return true, true
}

// fetchImage returns the first picture of the listing, or "" when none can be fetched.
func (e *responseEngine) fetchImage(ctx context.Context, log *slog.Logger, itemID string) string {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(e.cfg.ImageRetryDelay), 1), ctx)
	detail, err := backoff.RetryWithData(func() (*shared.ItemDetail, error) {
		return e.source.GetItemDetail(ctx, itemID)
	}, policy)
	if err != nil {
		log.Debug("listing image unavailable", "item_id", itemID, "error", err)
		return ""
	}
	if detail == nil || len(detail.PictureURLs) == 0 {
		return ""
	}
	return detail.PictureURLs[0]
}
