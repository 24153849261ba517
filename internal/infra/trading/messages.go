package trading

import "encoding/xml"

const apiNamespace = "urn:ebay:apis:eBLBaseComponents"

type requesterCredentials struct {
	AuthToken string `xml:"eBayAuthToken"`
}

type pagination struct {
	EntriesPerPage int `xml:"EntriesPerPage"`
	PageNumber     int `xml:"PageNumber"`
}

type getBestOffersRequest struct {
	XMLName         xml.Name             `xml:"GetBestOffersRequest"`
	Xmlns           string               `xml:"xmlns,attr"`
	Credentials     requesterCredentials `xml:"RequesterCredentials"`
	DetailLevel     string               `xml:"DetailLevel"`
	BestOfferStatus string               `xml:"BestOfferStatus"`
	Pagination      pagination           `xml:"Pagination"`
}

type getItemRequest struct {
	XMLName     xml.Name             `xml:"GetItemRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
	ItemID      string               `xml:"ItemID"`
	DetailLevel string               `xml:"DetailLevel"`
}

type amount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

type respondToBestOfferRequest struct {
	XMLName              xml.Name             `xml:"RespondToBestOfferRequest"`
	Xmlns                string               `xml:"xmlns,attr"`
	Credentials          requesterCredentials `xml:"RequesterCredentials"`
	ItemID               string               `xml:"ItemID"`
	BestOfferID          string               `xml:"BestOfferID"`
	Action               string               `xml:"Action"`
	CounterOfferPrice    *amount              `xml:"CounterOfferPrice,omitempty"`
	CounterOfferQuantity int                  `xml:"CounterOfferQuantity,omitempty"`
}

// baseResponse is embedded by every response; the API reports call-level outcome here.
type baseResponse struct {
	Ack    string     `xml:"Ack"`
	Errors []apiError `xml:"Errors"`
}

type apiError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
	ErrorCode    string `xml:"ErrorCode"`
	SeverityCode string `xml:"SeverityCode"`
}

func (e apiError) message() string {
	if e.LongMessage != "" {
		return e.LongMessage
	}
	return e.ShortMessage
}

type getBestOffersResponse struct {
	baseResponse
	ItemBestOffers   []itemBestOffers `xml:"ItemBestOffersArray>ItemBestOffers"`
	PaginationResult struct {
		TotalNumberOfPages   int `xml:"TotalNumberOfPages"`
		TotalNumberOfEntries int `xml:"TotalNumberOfEntries"`
	} `xml:"PaginationResult"`
}

type itemBestOffers struct {
	Item struct {
		ItemID        string `xml:"ItemID"`
		Title         string `xml:"Title"`
		BuyItNowPrice amount `xml:"BuyItNowPrice"`
	} `xml:"Item"`
	BestOffers []bestOffer `xml:"BestOfferArray>BestOffer"`
}

type bestOffer struct {
	BestOfferID string `xml:"BestOfferID"`
	Buyer       struct {
		UserID string `xml:"UserID"`
	} `xml:"Buyer"`
	BuyerMessage      string `xml:"BuyerMessage"`
	Price             amount `xml:"Price"`
	Quantity          string `xml:"Quantity"`
	ExpirationTime    string `xml:"ExpirationTime"`
	BestOfferCodeType string `xml:"BestOfferCodeType"`
	Status            string `xml:"Status"`
}

type getItemResponse struct {
	baseResponse
	Item struct {
		ItemID         string `xml:"ItemID"`
		SKU            string `xml:"SKU"`
		PictureDetails struct {
			PictureURL []string `xml:"PictureURL"`
		} `xml:"PictureDetails"`
	} `xml:"Item"`
}

type respondToBestOfferResponse struct {
	baseResponse
}
