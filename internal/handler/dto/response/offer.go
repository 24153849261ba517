package response

import (
	"time"

	"offer-relay/internal/usecase/commands"
	"offer-relay/internal/usecase/queries"
)

type OfferResponse struct {
	OfferID        string     `json:"offerId"`
	ItemID         string     `json:"itemId"`
	SKU            string     `json:"sku"`
	Title          string     `json:"title"`
	ListingPrice   string     `json:"listingPrice"`
	OfferAmount    string     `json:"offerAmount"`
	Currency       string     `json:"currency"`
	Quantity       int        `json:"quantity"`
	BuyerUserID    string     `json:"buyerUserId"`
	BuyerMessage   string     `json:"buyerMessage,omitempty"`
	ExpiresOn      string     `json:"expiresOn"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	Status         string     `json:"status"`
	FetchedOn      time.Time  `json:"fetchedOn"`
	ChannelAlerted bool       `json:"channelAlerted"`
	Surfaced       bool       `json:"surfaced"`
	ResponseState  string     `json:"responseState"`
	RespondedAt    *time.Time `json:"respondedAt,omitempty"`
	ResponseNote   string     `json:"responseNote,omitempty"`
}

type OfferListResponse struct {
	Offers []*OfferResponse `json:"offers"`
	Count  int              `json:"count"`
}

type IngestionCycleResponse struct {
	CycleID        string    `json:"cycleId"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	PagesFetched   int       `json:"pagesFetched"`
	PagesFailed    int       `json:"pagesFailed"`
	PageCapReached bool      `json:"pageCapReached"`
	Extracted      int       `json:"extracted"`
	Inserted       int       `json:"inserted"`
	Deferred       int       `json:"deferred"`
	Dropped        int       `json:"dropped"`
	SKUsResolved   int       `json:"skusResolved"`
	SKUsBackfilled int       `json:"skusBackfilled"`
}

type NotificationCycleResponse struct {
	CycleID       string `json:"cycleId"`
	Candidates    int    `json:"candidates"`
	Alerted       int    `json:"alerted"`
	Skipped       int    `json:"skipped"`
	Stale         int    `json:"stale"`
	Failed        int    `json:"failed"`
	PersistFailed int    `json:"persistFailed"`
}

func FromOfferView(v *queries.OfferView) *OfferResponse {
	return &OfferResponse{
		OfferID:        v.OfferID,
		ItemID:         v.ItemID,
		SKU:            v.SKU,
		Title:          v.Title,
		ListingPrice:   v.BINPrice,
		OfferAmount:    v.OfferAmount,
		Currency:       v.OfferCurrency,
		Quantity:       v.Quantity,
		BuyerUserID:    v.BuyerUserID,
		BuyerMessage:   v.BuyerMessage,
		ExpiresOn:      v.ExpiresOn,
		ExpiresAt:      v.ExpiresAt,
		Status:         v.Status,
		FetchedOn:      v.FetchedOn,
		ChannelAlerted: v.ChannelAlerted,
		Surfaced:       v.Surfaced,
		ResponseState:  v.ResponseState,
		RespondedAt:    v.RespondedAt,
		ResponseNote:   v.ResponseNote,
	}
}

func FromOfferViews(views []*queries.OfferView) *OfferListResponse {
	out := &OfferListResponse{Offers: make([]*OfferResponse, len(views)), Count: len(views)}
	for i, v := range views {
		out.Offers[i] = FromOfferView(v)
	}
	return out
}

func FromIngestionSummary(s *commands.IngestionSummary) *IngestionCycleResponse {
	return &IngestionCycleResponse{
		CycleID:        s.CycleID,
		StartedAt:      s.StartedAt,
		FinishedAt:     s.FinishedAt,
		PagesFetched:   s.PagesFetched,
		PagesFailed:    s.PagesFailed,
		PageCapReached: s.PageCapReached,
		Extracted:      s.Extracted,
		Inserted:       s.Inserted,
		Deferred:       s.Deferred,
		Dropped:        s.Dropped,
		SKUsResolved:   s.SKUsResolved,
		SKUsBackfilled: s.SKUsBackfilled,
	}
}

func FromNotificationSummary(s *commands.NotificationSummary) *NotificationCycleResponse {
	return &NotificationCycleResponse{
		CycleID:       s.CycleID,
		Candidates:    s.Candidates,
		Alerted:       s.Alerted,
		Skipped:       s.Skipped,
		Stale:         s.Stale,
		Failed:        s.Failed,
		PersistFailed: s.PersistFailed,
	}
}
