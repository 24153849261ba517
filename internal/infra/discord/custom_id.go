package discord

import (
	"strings"

	"offer-relay/internal/domain/offer"
)

const customIDPrefix = "offer"

// Component kinds encoded in custom IDs.
const (
	KindAccept        = "accept"
	KindDecline       = "decline"
	KindCounter       = "counter"
	KindCounterSubmit = "counter-submit"
)

// CounterInputID is the text input inside the counter modal.
const CounterInputID = "counter_amount"

func ActionCustomID(action offer.Action, offerID string) string {
	return customIDPrefix + ":" + strings.ToLower(action.String()) + ":" + offerID
}

func CounterModalCustomID(offerID string) string {
	return customIDPrefix + ":" + KindCounterSubmit + ":" + offerID
}

// ParseCustomID splits "offer:<kind>:<offerID>". Offer IDs never contain ':' but are taken
// verbatim after the second separator anyway.
func ParseCustomID(id string) (kind, offerID string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[2] == "" {
		return "", "", false
	}
	switch parts[1] {
	case KindAccept, KindDecline, KindCounter, KindCounterSubmit:
		return parts[1], parts[2], true
	default:
		return "", "", false
	}
}

// ActionForKind maps a component kind to the offer action it triggers.
func ActionForKind(kind string) (offer.Action, bool) {
	switch kind {
	case KindAccept:
		return offer.ActionAccept, true
	case KindDecline:
		return offer.ActionDecline, true
	case KindCounter, KindCounterSubmit:
		return offer.ActionCounter, true
	default:
		return "", false
	}
}
