package offer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UpstreamTimeLayout is the UTC layout the trading API uses for expiration times.
	UpstreamTimeLayout = "2006-01-02T15:04:05.000Z"
	DisplayTimeLayout  = "2006-01-02 03:04 PM MST"

	UnknownCurrency = "???"

	// CounterQuantity is the quantity sent with every counter offer.
	CounterQuantity = 1
)

var ErrInvalidCounterPrice = errors.New("counter price must be a positive amount with at most two decimal places")

type Money struct {
	amount   decimal.Decimal
	currency string
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = UnknownCurrency
	}
	return Money{amount: amount, currency: currency}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Display renders the amount the way the offer card shows prices.
func (m Money) Display() string {
	return "$" + m.amount.StringFixed(2)
}

// Expiration keeps the display-zone rendering of the upstream timestamp, or the raw text when it
// could not be parsed.
type Expiration struct {
	at      *time.Time
	display string
}

func ParseExpiration(raw string, loc *time.Location) Expiration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Expiration{}
	}
	t, err := time.Parse(UpstreamTimeLayout, raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		return Expiration{display: raw}
	}
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Expiration{at: &local, display: local.Format(DisplayTimeLayout)}
}

func ReconstructExpiration(at *time.Time, display string) Expiration {
	return Expiration{at: at, display: display}
}

func (e Expiration) At() (time.Time, bool) {
	if e.at == nil {
		return time.Time{}, false
	}
	return *e.at, true
}

func (e Expiration) AtPtr() *time.Time {
	return e.at
}

func (e Expiration) String() string {
	return e.display
}

// SurfaceRef locates the posted offer card so it can be retired later.
type SurfaceRef struct {
	ChannelID string
	MessageID string
}

func (r SurfaceRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

type NotificationState struct {
	channelAlerted bool
	alertedAt      *time.Time
	surfaced       bool
	surfacedAt     *time.Time
	surface        SurfaceRef
}

func ReconstructNotificationState(alerted bool, alertedAt *time.Time, surfaced bool, surfacedAt *time.Time, ref SurfaceRef) NotificationState {
	return NotificationState{
		channelAlerted: alerted,
		alertedAt:      alertedAt,
		surfaced:       surfaced,
		surfacedAt:     surfacedAt,
		surface:        ref,
	}
}

func (n NotificationState) ChannelAlerted() bool {
	return n.channelAlerted
}

func (n NotificationState) AlertedAt() *time.Time {
	return n.alertedAt
}

func (n NotificationState) Surfaced() bool {
	return n.surfaced
}

func (n NotificationState) SurfacedAt() *time.Time {
	return n.surfacedAt
}

func (n NotificationState) Surface() SurfaceRef {
	return n.surface
}

// ParseCounterPrice validates free-text counter input and rounds it to cents. A leading "$"
// is tolerated; a value that rounds to zero is rejected.
func ParseCounterPrice(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return decimal.Zero, ErrInvalidCounterPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidCounterPrice
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidCounterPrice
	}
	return d, nil
}
