package offer

import "strings"

// Status is the upstream negotiation status. Only Pending and Expired are ever persisted.
type Status string

const (
	StatusPending Status = "Pending"
	StatusExpired Status = "Expired"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusExpired:
		return true
	default:
		return false
	}
}

// Type is the upstream classification of an offer.
type Type string

const (
	TypeBuyerBestOffer     Type = "BuyerBestOffer"
	TypeBuyerCounterOffer  Type = "BuyerCounterOffer"
	TypeSellerCounterOffer Type = "SellerCounterOffer"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsSellerCounter() bool {
	return t == TypeSellerCounterOffer
}

type ResponseState string

const (
	ResponseOpen        ResponseState = "open"
	ResponseAccepted    ResponseState = "accepted"
	ResponseDeclined    ResponseState = "declined"
	ResponseCountered   ResponseState = "countered"
	ResponseUnavailable ResponseState = "unavailable"
)

func (s ResponseState) String() string {
	return string(s)
}

func (s ResponseState) IsValid() bool {
	switch s {
	case ResponseOpen, ResponseAccepted, ResponseDeclined, ResponseCountered, ResponseUnavailable:
		return true
	default:
		return false
	}
}

func (s ResponseState) IsTerminal() bool {
	return s.IsValid() && s != ResponseOpen
}

func ParseResponseState(raw string) (ResponseState, bool) {
	s := ResponseState(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.IsValid()
}

// Action is a user decision on a surfaced offer. The values are the upstream action names.
type Action string

const (
	ActionAccept  Action = "Accept"
	ActionDecline Action = "Decline"
	ActionCounter Action = "Counter"
)

func (a Action) String() string {
	return string(a)
}

func (a Action) IsValid() bool {
	switch a {
	case ActionAccept, ActionDecline, ActionCounter:
		return true
	default:
		return false
	}
}

// ResultState is the terminal state reached when the upstream accepts the action.
func (a Action) ResultState() ResponseState {
	switch a {
	case ActionAccept:
		return ResponseAccepted
	case ActionDecline:
		return ResponseDeclined
	case ActionCounter:
		return ResponseCountered
	default:
		return ResponseOpen
	}
}

func ParseAction(raw string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accept":
		return ActionAccept, true
	case "decline":
		return ActionDecline, true
	case "counter":
		return ActionCounter, true
	default:
		return "", false
	}
}
