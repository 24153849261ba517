package commands

import (
	"math"
	"strconv"
	"strings"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/usecase/shared"

	"github.com/shopspring/decimal"
)

// Extraction is the normalized content of one upstream page.
type Extraction struct {
	Offers []*offer.Offer
	// ItemIDs holds every distinct listing on the page in first-seen order, including listings
	// whose offers were all filtered out.
	ItemIDs []string
	Skipped int
}

// Extract flattens a page into candidate offers. It has no side effects.
func Extract(page *shared.OfferPage, loc *time.Location, fetchedOn time.Time) Extraction {
	var ext Extraction
	if page == nil {
		return ext
	}
	seen := make(map[string]struct{}, len(page.Items))

	for _, group := range page.Items {
		itemID := strings.TrimSpace(group.Item.ItemID)
		if itemID == "" {
			ext.Skipped += len(group.Offers)
			continue
		}
		if _, ok := seen[itemID]; !ok {
			seen[itemID] = struct{}{}
			ext.ItemIDs = append(ext.ItemIDs, itemID)
		}

		binPrice := parseAmount(group.Item.BuyItNowPrice)
		for _, raw := range group.Offers {
			if offer.Type(raw.CodeType).IsSellerCounter() {
				ext.Skipped++
				continue
			}
			status := offer.Status(strings.TrimSpace(raw.Status))
			if !status.IsValid() {
				ext.Skipped++
				continue
			}

			o, err := offer.New(offer.Draft{
				OfferID:      raw.BestOfferID,
				ItemID:       itemID,
				Title:        group.Item.Title,
				BINPrice:     binPrice,
				BuyerUserID:  strings.TrimSpace(raw.BuyerUserID),
				BuyerMessage: strings.TrimSpace(raw.BuyerMessage),
				OfferAmount:  parseAmount(raw.Price),
				Quantity:     parseQuantity(raw.Quantity),
				Expiration:   offer.ParseExpiration(raw.ExpirationTime, loc),
				OfferType:    offer.Type(strings.TrimSpace(raw.CodeType)),
				Status:       status,
				FetchedOn:    fetchedOn,
			})
			if err != nil {
				ext.Skipped++
				continue
			}
			ext.Offers = append(ext.Offers, o)
		}
	}
	return ext
}

// maxAmount is the exclusive upper bound of a stored price (NUMERIC(14,2)).
var maxAmount = decimal.New(1, 12)

func parseAmount(a shared.RawAmount) offer.Money {
	d, err := decimal.NewFromString(strings.TrimSpace(a.Value))
	if err != nil || d.IsNegative() || d.GreaterThanOrEqual(maxAmount) {
		d = decimal.Zero
	}
	return offer.NewMoney(d, a.Currency)
}

func parseQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > math.MaxInt32 {
		return 1
	}
	return n
}
