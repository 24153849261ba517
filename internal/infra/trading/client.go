// Package trading is the OfferSource adapter over the XML trading API.
package trading

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"offer-relay/internal/pkg/config"
	"offer-relay/internal/usecase/shared"
)

const (
	callGetBestOffers      = "GetBestOffers"
	callGetItem            = "GetItem"
	callRespondToBestOffer = "RespondToBestOffer"

	maxResponseBytes = 16 << 20
)

type Client struct {
	endpoint string
	cfg      config.TradingConfig
	client   *http.Client
	logger   *slog.Logger
}

var _ shared.OfferSource = (*Client)(nil)

func NewClient(cfg config.TradingConfig, logger *slog.Logger) *Client {
	to := cfg.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		cfg:      cfg,
		client:   &http.Client{Timeout: to},
		logger:   logger,
	}
}

func (c *Client) credentials() requesterCredentials {
	return requesterCredentials{AuthToken: c.cfg.AuthToken}
}

// ListOffers fetches one page of best offers. A Failure ack is returned inside the page, not as an
// error, so the pipeline can count it and move on.
func (c *Client) ListOffers(ctx context.Context, page, pageSize int) (*shared.OfferPage, error) {
	req := getBestOffersRequest{
		Xmlns:           apiNamespace,
		Credentials:     c.credentials(),
		DetailLevel:     "ReturnAll",
		BestOfferStatus: "All",
		Pagination:      pagination{EntriesPerPage: pageSize, PageNumber: page},
	}
	var resp getBestOffersResponse
	if err := c.call(ctx, callGetBestOffers, req, &resp); err != nil {
		return nil, err
	}

	out := &shared.OfferPage{
		Page:       page,
		Ack:        shared.Ack(resp.Ack),
		TotalPages: resp.PaginationResult.TotalNumberOfPages,
		Errors:     messages(resp.Errors),
	}
	for _, ibo := range resp.ItemBestOffers {
		entry := shared.RawItemOffers{
			Item: shared.RawItem{
				ItemID:        strings.TrimSpace(ibo.Item.ItemID),
				Title:         ibo.Item.Title,
				BuyItNowPrice: rawAmount(ibo.Item.BuyItNowPrice),
			},
		}
		for _, bo := range ibo.BestOffers {
			entry.Offers = append(entry.Offers, shared.RawOffer{
				BestOfferID:    strings.TrimSpace(bo.BestOfferID),
				BuyerUserID:    bo.Buyer.UserID,
				BuyerMessage:   bo.BuyerMessage,
				Price:          rawAmount(bo.Price),
				Quantity:       bo.Quantity,
				ExpirationTime: bo.ExpirationTime,
				CodeType:       bo.BestOfferCodeType,
				Status:         bo.Status,
			})
		}
		out.Items = append(out.Items, entry)
	}
	return out, nil
}

func (c *Client) GetItemDetail(ctx context.Context, itemID string) (*shared.ItemDetail, error) {
	req := getItemRequest{
		Xmlns:       apiNamespace,
		Credentials: c.credentials(),
		ItemID:      itemID,
		DetailLevel: "ReturnAll",
	}
	var resp getItemResponse
	if err := c.call(ctx, callGetItem, req, &resp); err != nil {
		return nil, err
	}
	if err := ackError(callGetItem, resp.baseResponse); err != nil {
		return nil, err
	}

	detail := &shared.ItemDetail{
		ItemID: strings.TrimSpace(resp.Item.ItemID),
		SKU:    strings.TrimSpace(resp.Item.SKU),
	}
	if detail.ItemID == "" {
		detail.ItemID = itemID
	}
	for _, u := range resp.Item.PictureDetails.PictureURL {
		if u = strings.TrimSpace(u); u != "" {
			detail.PictureURLs = append(detail.PictureURLs, u)
		}
	}
	return detail, nil
}

func (c *Client) RespondToOffer(ctx context.Context, r shared.RespondRequest) error {
	req := respondToBestOfferRequest{
		Xmlns:       apiNamespace,
		Credentials: c.credentials(),
		ItemID:      r.ItemID,
		BestOfferID: r.OfferID,
		Action:      r.Action.String(),
	}
	if r.CounterPrice != nil {
		currency := r.Currency
		if currency == "" {
			currency = c.cfg.CounterCurrency
		}
		req.CounterOfferPrice = &amount{Value: r.CounterPrice.StringFixed(2), CurrencyID: currency}
		req.CounterOfferQuantity = max(r.Quantity, 1)
	}

	var resp respondToBestOfferResponse
	if err := c.call(ctx, callRespondToBestOffer, req, &resp); err != nil {
		return err
	}
	return ackError(callRespondToBestOffer, resp.baseResponse)
}

func (c *Client) call(ctx context.Context, callName string, payload, out any) error {
	body, err := xml.Marshal(payload)
	if err != nil {
		return &shared.UpstreamError{Op: callName, Message: "encode request", Err: err}
	}
	body = append([]byte(xml.Header), body...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &shared.UpstreamError{Op: callName, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("X-EBAY-API-CALL-NAME", callName)
	req.Header.Set("X-EBAY-API-SITEID", c.cfg.SiteID)
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", c.cfg.CompatibilityLevel)
	req.Header.Set("X-EBAY-API-APP-NAME", c.cfg.AppID)
	req.Header.Set("X-EBAY-API-DEV-NAME", c.cfg.DevID)
	req.Header.Set("X-EBAY-API-CERT-NAME", c.cfg.CertID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &shared.UpstreamError{Op: callName, Retryable: isTransient(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.logger.Debug("upstream call",
		"call", callName,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())
	if err != nil {
		return &shared.UpstreamError{Op: callName, Retryable: true, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &shared.UpstreamError{
			Op:        callName,
			Code:      "HTTP" + strconv.Itoa(resp.StatusCode),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Message:   fmt.Sprintf("http status %d", resp.StatusCode),
		}
	}

	if err := xml.Unmarshal(raw, out); err != nil {
		return &shared.UpstreamError{Op: callName, Message: "decode response", Err: err}
	}
	return nil
}

// ackError turns a Failure or PartialFailure ack into an UpstreamError carrying the first error code.
func ackError(op string, resp baseResponse) error {
	if shared.Ack(resp.Ack).Usable() {
		return nil
	}
	ue := &shared.UpstreamError{Op: op, Message: "ack " + resp.Ack}
	for _, e := range resp.Errors {
		if e.SeverityCode == "Warning" {
			continue
		}
		ue.Code = strings.TrimSpace(e.ErrorCode)
		ue.Message = e.message()
		break
	}
	return ue
}

// Transport failures are transient unless the caller gave up.
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func messages(in []apiError) []shared.UpstreamMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]shared.UpstreamMessage, 0, len(in))
	for _, e := range in {
		out = append(out, shared.UpstreamMessage{Code: strings.TrimSpace(e.ErrorCode), Message: e.message()})
	}
	return out
}

func rawAmount(a amount) shared.RawAmount {
	return shared.RawAmount{Value: strings.TrimSpace(a.Value), Currency: strings.TrimSpace(a.CurrencyID)}
}
