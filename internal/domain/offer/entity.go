package offer

import (
	"errors"
	"strings"
	"time"

	"offer-relay/internal/domain/channel"
)

var (
	ErrMissingOfferID       = errors.New("offer id is required")
	ErrMissingItemID        = errors.New("item id is required")
	ErrInvalidStatus        = errors.New("offer status must be Pending or Expired")
	ErrSellerCounterOffer   = errors.New("seller counter offers are not tracked")
	ErrAlreadyResolved      = errors.New("offer has already been resolved")
	ErrInvalidResponseState = errors.New("invalid response state")
)

// Draft carries the attributes extracted from one upstream offer record.
type Draft struct {
	OfferID      string
	ItemID       string
	SKU          string
	Title        string
	BINPrice     Money
	BuyerUserID  string
	BuyerMessage string
	OfferAmount  Money
	Quantity     int
	Expiration   Expiration
	OfferType    Type
	Status       Status
	FetchedOn    time.Time
}

type Offer struct {
	offerID      string
	itemID       string
	sku          string
	skuKey       string
	title        string
	binPrice     Money
	buyerUserID  string
	buyerMessage string
	offerAmount  Money
	quantity     int
	expiration   Expiration
	offerType    Type
	status       Status
	fetchedOn    time.Time

	notification NotificationState
	response     ResponseState
	respondedAt  *time.Time
	responseNote string
}

// New builds an open, never-notified offer from a draft.
func New(d Draft) (*Offer, error) {
	d.OfferID = strings.TrimSpace(d.OfferID)
	d.ItemID = strings.TrimSpace(d.ItemID)
	if d.OfferID == "" {
		return nil, ErrMissingOfferID
	}
	if d.ItemID == "" {
		return nil, ErrMissingItemID
	}
	if d.OfferType.IsSellerCounter() {
		return nil, ErrSellerCounterOffer
	}
	if !d.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if d.Quantity < 1 {
		d.Quantity = 1
	}
	o := fromDraft(d)
	o.response = ResponseOpen
	return o, nil
}

func fromDraft(d Draft) *Offer {
	sku := strings.TrimSpace(d.SKU)
	return &Offer{
		offerID:      d.OfferID,
		itemID:       d.ItemID,
		sku:          sku,
		skuKey:       channel.NormalizeSKU(sku),
		title:        d.Title,
		binPrice:     d.BINPrice,
		buyerUserID:  d.BuyerUserID,
		buyerMessage: d.BuyerMessage,
		offerAmount:  d.OfferAmount,
		quantity:     d.Quantity,
		expiration:   d.Expiration,
		offerType:    d.OfferType,
		status:       d.Status,
		fetchedOn:    d.FetchedOn,
	}
}

func Reconstruct(
	d Draft,
	notification NotificationState,
	response ResponseState,
	respondedAt *time.Time,
	responseNote string,
) *Offer {
	o := fromDraft(d)
	o.notification = notification
	o.response = response
	o.respondedAt = respondedAt
	o.responseNote = responseNote
	return o
}

func (o *Offer) OfferID() string                 { return o.offerID }
func (o *Offer) ItemID() string                  { return o.itemID }
func (o *Offer) SKU() string                     { return o.sku }
func (o *Offer) SKUKey() string                  { return o.skuKey }
func (o *Offer) Title() string                   { return o.title }
func (o *Offer) BINPrice() Money                 { return o.binPrice }
func (o *Offer) BuyerUserID() string             { return o.buyerUserID }
func (o *Offer) BuyerMessage() string            { return o.buyerMessage }
func (o *Offer) OfferAmount() Money              { return o.offerAmount }
func (o *Offer) Quantity() int                   { return o.quantity }
func (o *Offer) Expiration() Expiration          { return o.expiration }
func (o *Offer) OfferType() Type                 { return o.offerType }
func (o *Offer) Status() Status                  { return o.status }
func (o *Offer) FetchedOn() time.Time            { return o.fetchedOn }
func (o *Offer) Notification() NotificationState { return o.notification }
func (o *Offer) Response() ResponseState         { return o.response }
func (o *Offer) RespondedAt() *time.Time         { return o.respondedAt }
func (o *Offer) ResponseNote() string            { return o.responseNote }

func (o *Offer) IsOpen() bool {
	return o.response == ResponseOpen
}

// NeedsAlert reports whether the offer is eligible for a channel alert.
func (o *Offer) NeedsAlert() bool {
	return o.IsOpen() && !o.notification.channelAlerted && !o.notification.surfaced
}

// AttachSKU sets the SKU when none is known yet. It reports whether anything changed.
func (o *Offer) AttachSKU(sku string) bool {
	sku = strings.TrimSpace(sku)
	if sku == "" || o.sku != "" {
		return false
	}
	o.sku = sku
	o.skuKey = channel.NormalizeSKU(sku)
	return true
}

func (o *Offer) MarkAlerted(at time.Time) {
	if o.notification.channelAlerted {
		return
	}
	o.notification.channelAlerted = true
	o.notification.alertedAt = &at
}

func (o *Offer) MarkSurfaced(ref SurfaceRef, at time.Time) {
	o.notification.surfaced = true
	o.notification.surfacedAt = &at
	o.notification.surface = ref
}

// Resolve moves an open offer to a terminal state.
func (o *Offer) Resolve(to ResponseState, at time.Time, note string) error {
	if !to.IsTerminal() {
		return ErrInvalidResponseState
	}
	if o.response.IsTerminal() {
		return ErrAlreadyResolved
	}
	o.response = to
	o.respondedAt = &at
	o.responseNote = note
	return nil
}

// Draft returns the immutable attributes of the offer.
func (o *Offer) Draft() Draft {
	return Draft{
		OfferID:      o.offerID,
		ItemID:       o.itemID,
		SKU:          o.sku,
		Title:        o.title,
		BINPrice:     o.binPrice,
		BuyerUserID:  o.buyerUserID,
		BuyerMessage: o.buyerMessage,
		OfferAmount:  o.offerAmount,
		Quantity:     o.quantity,
		Expiration:   o.expiration,
		OfferType:    o.offerType,
		Status:       o.status,
		FetchedOn:    o.fetchedOn,
	}
}
