//go:build unit

package trading

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/config"
	"offer-relay/internal/usecase/shared"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bestOffersPage = `<?xml version="1.0" encoding="UTF-8"?>
<GetBestOffersResponse xmlns="urn:ebay:apis:eBLBaseComponents">
  <Ack>Success</Ack>
  <ItemBestOffersArray>
    <ItemBestOffers>
      <Role>Seller</Role>
      <BestOfferArray>
        <BestOffer>
          <BestOfferID>9001</BestOfferID>
          <ExpirationTime>2025-03-01T20:00:00.000Z</ExpirationTime>
          <Buyer><UserID>buyer_one</UserID></Buyer>
          <Price currencyID="USD">80.0</Price>
          <Status>Pending</Status>
          <Quantity>1</Quantity>
          <BuyerMessage>Would you take this?</BuyerMessage>
          <BestOfferCodeType>BuyerBestOffer</BestOfferCodeType>
        </BestOffer>
        <BestOffer>
          <BestOfferID>9002</BestOfferID>
          <Price currencyID="USD">70.0</Price>
          <Status>Pending</Status>
          <BestOfferCodeType>SellerCounterOffer</BestOfferCodeType>
        </BestOffer>
      </BestOfferArray>
      <Item>
        <ItemID>110011</ItemID>
        <Title>Vintage Film Camera</Title>
        <BuyItNowPrice currencyID="USD">120.0</BuyItNowPrice>
      </Item>
    </ItemBestOffers>
  </ItemBestOffersArray>
  <PaginationResult>
    <TotalNumberOfPages>3</TotalNumberOfPages>
    <TotalNumberOfEntries>401</TotalNumberOfEntries>
  </PaginationResult>
</GetBestOffersResponse>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.NewTestConfig().Trading
	cfg.Endpoint = srv.URL
	cfg.Timeout = 2 * time.Second
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListOffers(t *testing.T) {
	var got getBestOffersRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "GetBestOffers", r.Header.Get("X-EBAY-API-CALL-NAME"))
		assert.Equal(t, "test-app", r.Header.Get("X-EBAY-API-APP-NAME"))
		assert.Equal(t, "1349", r.Header.Get("X-EBAY-API-COMPATIBILITY-LEVEL"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, xml.Unmarshal(body, &got))
		_, _ = io.WriteString(w, bestOffersPage)
	})

	page, err := c.ListOffers(context.Background(), 2, 200)
	require.NoError(t, err)

	assert.Equal(t, "test-token", got.Credentials.AuthToken)
	assert.Equal(t, "ReturnAll", got.DetailLevel)
	assert.Equal(t, "All", got.BestOfferStatus)
	assert.Equal(t, pagination{EntriesPerPage: 200, PageNumber: 2}, got.Pagination)

	want := &shared.OfferPage{
		Page:       2,
		Ack:        shared.AckSuccess,
		TotalPages: 3,
		Items: []shared.RawItemOffers{{
			Item: shared.RawItem{
				ItemID:        "110011",
				Title:         "Vintage Film Camera",
				BuyItNowPrice: shared.RawAmount{Value: "120.0", Currency: "USD"},
			},
			Offers: []shared.RawOffer{
				{
					BestOfferID:    "9001",
					BuyerUserID:    "buyer_one",
					BuyerMessage:   "Would you take this?",
					Price:          shared.RawAmount{Value: "80.0", Currency: "USD"},
					Quantity:       "1",
					ExpirationTime: "2025-03-01T20:00:00.000Z",
					CodeType:       "BuyerBestOffer",
					Status:         "Pending",
				},
				{
					BestOfferID: "9002",
					Price:       shared.RawAmount{Value: "70.0", Currency: "USD"},
					CodeType:    "SellerCounterOffer",
					Status:      "Pending",
				},
			},
		}},
	}
	if diff := cmp.Diff(want, page); diff != "" {
		t.Errorf("ListOffers mismatch (-want +got):\n%s", diff)
	}
}

func TestListOffersFailureAckIsAValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<GetBestOffersResponse><Ack>Failure</Ack>
			<Errors><ShortMessage>Bad</ShortMessage><ErrorCode>10007</ErrorCode><SeverityCode>Error</SeverityCode></Errors>
			</GetBestOffersResponse>`)
	})

	page, err := c.ListOffers(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.Equal(t, shared.AckFailure, page.Ack)
	assert.False(t, page.Ack.Usable())
	assert.Equal(t, []shared.UpstreamMessage{{Code: "10007", Message: "Bad"}}, page.Errors)
}

func TestGetItemDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req getItemRequest
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, xml.Unmarshal(body, &req))
		assert.Equal(t, "110011", req.ItemID)
		_, _ = io.WriteString(w, `<GetItemResponse><Ack>Success</Ack><Item><ItemID>110011</ItemID>
			<SKU> AB-12 </SKU><PictureDetails><PictureURL>https://img/1.jpg</PictureURL>
			<PictureURL>https://img/2.jpg</PictureURL></PictureDetails></Item></GetItemResponse>`)
	})

	detail, err := c.GetItemDetail(context.Background(), "110011")
	require.NoError(t, err)
	assert.Equal(t, &shared.ItemDetail{
		ItemID:      "110011",
		SKU:         "AB-12",
		PictureURLs: []string{"https://img/1.jpg", "https://img/2.jpg"},
	}, detail)
}

func TestRespondToOffer(t *testing.T) {
	t.Run("counter carries price and quantity", func(t *testing.T) {
		var got respondToBestOfferRequest
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, xml.Unmarshal(body, &got))
			_, _ = io.WriteString(w, `<RespondToBestOfferResponse><Ack>Success</Ack></RespondToBestOfferResponse>`)
		})

		price := decimal.RequireFromString("42.5")
		err := c.RespondToOffer(context.Background(), shared.RespondRequest{
			ItemID:       "110011",
			OfferID:      "9001",
			Action:       offer.ActionCounter,
			CounterPrice: &price,
			Quantity:     offer.CounterQuantity,
		})
		require.NoError(t, err)
		assert.Equal(t, "Counter", got.Action)
		assert.Equal(t, "9001", got.BestOfferID)
		require.NotNil(t, got.CounterOfferPrice)
		assert.Equal(t, "42.50", got.CounterOfferPrice.Value)
		assert.Equal(t, "USD", got.CounterOfferPrice.CurrencyID)
		assert.Equal(t, 1, got.CounterOfferQuantity)
	})

	t.Run("accept omits counter fields", func(t *testing.T) {
		var body []byte
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ = io.ReadAll(r.Body)
			_, _ = io.WriteString(w, `<RespondToBestOfferResponse><Ack>Success</Ack></RespondToBestOfferResponse>`)
		})
		require.NoError(t, c.RespondToOffer(context.Background(), shared.RespondRequest{
			ItemID: "110011", OfferID: "9001", Action: offer.ActionAccept,
		}))
		assert.NotContains(t, string(body), "CounterOfferPrice")
	})

	t.Run("failure ack becomes a coded error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<RespondToBestOfferResponse><Ack>Failure</Ack>
				<Errors><ShortMessage>Warn</ShortMessage><ErrorCode>1</ErrorCode><SeverityCode>Warning</SeverityCode></Errors>
				<Errors><ShortMessage>Gone</ShortMessage><LongMessage>The best offer is no longer active.</LongMessage>
				<ErrorCode>20136</ErrorCode><SeverityCode>Error</SeverityCode></Errors>
				</RespondToBestOfferResponse>`)
		})
		err := c.RespondToOffer(context.Background(), shared.RespondRequest{ItemID: "1", OfferID: "2", Action: offer.ActionDecline})
		ue, ok := shared.AsUpstreamError(err)
		require.True(t, ok)
		assert.Equal(t, "20136", ue.Code)
		assert.False(t, ue.Retryable)
		assert.Equal(t, "The best offer is no longer active.", ue.Detail())
	})
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.GetItemDetail(context.Background(), "1")
			ue, ok := shared.AsUpstreamError(err)
			require.True(t, ok)
			assert.Equal(t, tt.retryable, ue.Retryable)
			assert.Equal(t, "GetItem", ue.Op)
		})
	}
}

func TestUndecodableBodyIsNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<<not xml")
	})
	_, err := c.ListOffers(context.Background(), 1, 10)
	ue, ok := shared.AsUpstreamError(err)
	require.True(t, ok)
	assert.False(t, ue.Retryable)
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.NewTestConfig().Trading
	cfg.Endpoint = url
	c := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.ListOffers(context.Background(), 1, 10)
	ue, ok := shared.AsUpstreamError(err)
	require.True(t, ok)
	assert.True(t, ue.Retryable)
}
