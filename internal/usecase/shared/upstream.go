package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"offer-relay/internal/domain/offer"
)

//go:generate mockgen -source=upstream.go -destination=mock/upstream.go -package=mock

// OfferSource is the upstream commerce API.
type OfferSource interface {
	ListOffers(ctx context.Context, page, pageSize int) (*OfferPage, error)
	GetItemDetail(ctx context.Context, itemID string) (*ItemDetail, error)
	RespondToOffer(ctx context.Context, req RespondRequest) error
}

type Ack string

const (
	AckSuccess        Ack = "Success"
	AckWarning        Ack = "Warning"
	AckFailure        Ack = "Failure"
	AckPartialFailure Ack = "PartialFailure"
)

// Usable reports whether the payload accompanying the ack may be processed.
func (a Ack) Usable() bool {
	return a == AckSuccess || a == AckWarning
}

type OfferPage struct {
	Page       int
	Ack        Ack
	TotalPages int
	Items      []RawItemOffers
	Errors     []UpstreamMessage
}

type UpstreamMessage struct {
	Code    string
	Message string
}

// RawItemOffers groups the offers received on one listing.
type RawItemOffers struct {
	Item   RawItem
	Offers []RawOffer
}

type RawItem struct {
	ItemID        string
	Title         string
	BuyItNowPrice RawAmount
}

// RawAmount keeps the upstream text so malformed values can be coerced during extraction.
type RawAmount struct {
	Value    string
	Currency string
}

type RawOffer struct {
	BestOfferID    string
	BuyerUserID    string
	BuyerMessage   string
	Price          RawAmount
	Quantity       string
	ExpirationTime string
	CodeType       string
	Status         string
}

type ItemDetail struct {
	ItemID      string
	SKU         string
	PictureURLs []string
}

type RespondRequest struct {
	ItemID       string
	OfferID      string
	Action       offer.Action
	CounterPrice *decimal.Decimal
	Currency     string
	Quantity     int
}

// UpstreamError is the typed failure of an upstream call.
type UpstreamError struct {
	Op        string
	Code      string
	Retryable bool
	Message   string
	Err       error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: upstream error %s: %s", e.Op, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream error"
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Detail is the text shown to users for an unclassified rejection.
func (e *UpstreamError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
