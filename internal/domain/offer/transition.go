package offer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MessageUnavailable   = "⚠️ This best offer is no longer available. It has either expired, been withdrawn by the buyer, or you've already responded to it."
	MessageInvalidAmount = "❌ Invalid amount format."
)

type EffectKind string

const (
	EffectRespondUpstream EffectKind = "respond_upstream"
	EffectPersist         EffectKind = "persist"
	EffectRetireCard      EffectKind = "retire_card"
	EffectReply           EffectKind = "reply"
)

// Effect is a side effect the caller must apply, in order.
type Effect struct {
	Kind         EffectKind
	Action       Action
	CounterPrice *decimal.Decimal
	State        ResponseState
	Message      string
}

// Command is a user request against one offer. CounterInput is the raw text typed into the counter prompt.
type Command struct {
	OfferID      string
	ItemID       string
	Action       Action
	CounterInput string
}

// Transition is the outcome of feeding a command to the state machine.
type Transition struct {
	From    ResponseState
	To      ResponseState
	Effects []Effect
	// Err is set when the command was rejected before reaching the upstream.
	Err error
	// CounterPrice is the validated counter amount, nil for other actions.
	CounterPrice *decimal.Decimal
}

// NeedsUpstream reports whether the transition asks for an upstream call.
func (t Transition) NeedsUpstream() bool {
	for _, e := range t.Effects {
		if e.Kind == EffectRespondUpstream {
			return true
		}
	}
	return false
}

func (t Transition) Reply() string {
	for i := len(t.Effects) - 1; i >= 0; i-- {
		if t.Effects[i].Kind == EffectReply {
			return t.Effects[i].Message
		}
	}
	return ""
}

func (t Transition) Has(kind EffectKind) bool {
	for _, e := range t.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Plan validates a command against the current state. Terminal states and invalid input produce
// a reply-only transition.
func Plan(current ResponseState, cmd Command) Transition {
	t := Transition{From: current, To: current}

	if current.IsTerminal() {
		t.Err = ErrAlreadyResolved
		t.Effects = []Effect{reply(fmt.Sprintf("ℹ️ Offer %s was already %s.", cmd.OfferID, current))}
		return t
	}
	if !cmd.Action.IsValid() {
		t.Err = fmt.Errorf("unknown action %q", cmd.Action)
		t.Effects = []Effect{reply("❌ Unknown offer action.")}
		return t
	}

	respond := Effect{Kind: EffectRespondUpstream, Action: cmd.Action}
	if cmd.Action == ActionCounter {
		price, err := ParseCounterPrice(cmd.CounterInput)
		if err != nil {
			t.Err = err
			t.Effects = []Effect{reply(MessageInvalidAmount)}
			return t
		}
		respond.CounterPrice = &price
		t.CounterPrice = &price
	}
	t.Effects = []Effect{respond}
	return t
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeUnavailable is a known rejection: expired, withdrawn or already answered.
	OutcomeUnavailable
	// OutcomeRejected covers every other upstream failure. State is left untouched.
	OutcomeRejected
)

// Settle completes a planned transition once the upstream answered.
func Settle(current ResponseState, cmd Command, outcome Outcome, detail string) Transition {
	t := Transition{From: current, To: current}
	switch outcome {
	case OutcomeSuccess:
		t.To = cmd.Action.ResultState()
		t.Effects = []Effect{
			{Kind: EffectPersist, State: t.To},
			{Kind: EffectRetireCard},
			reply(fmt.Sprintf("✅ %s offer %s for Item %s", cmd.Action, cmd.OfferID, cmd.ItemID)),
		}
	case OutcomeUnavailable:
		t.To = ResponseUnavailable
		t.Effects = []Effect{
			{Kind: EffectPersist, State: t.To},
			{Kind: EffectRetireCard},
			reply(MessageUnavailable),
		}
	default:
		detail = strings.TrimSpace(detail)
		if detail == "" {
			detail = "unknown error"
		}
		t.Effects = []Effect{
			reply(fmt.Sprintf("❌ Failed to %s offer %s: %s", strings.ToLower(cmd.Action.String()), cmd.OfferID, detail)),
		}
	}
	return t
}

func reply(msg string) Effect {
	return Effect{Kind: EffectReply, Message: msg}
}
