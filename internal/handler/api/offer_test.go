//go:build unit

package api_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"offer-relay/internal/handler/api"
	resdto "offer-relay/internal/handler/dto/response"
	"offer-relay/internal/handler/middleware"
	"offer-relay/internal/infra"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/testutil/httptest"
	"offer-relay/internal/usecase/queries"
	queriesmock "offer-relay/internal/usecase/queries/mock"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type OfferHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockOfferQueries
	handler     *api.OfferHandler
}

func (s *OfferHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(middleware.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))))

	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockOfferQueries(s.mockCtrl)
	s.handler = api.NewOfferHandler(s.mockQueries)

	s.router.GET("/api/offers", s.handler.List)
	s.router.GET("/api/offers/:id", s.handler.Get)
}

func (s *OfferHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestOfferHandlerSuite(t *testing.T) {
	suite.Run(t, new(OfferHandlerTestSuite))
}

func sampleView(id string) *queries.OfferView {
	return &queries.OfferView{
		OfferID:       id,
		ItemID:        "110011",
		SKU:           "AB-12",
		Title:         "Vintage Film Camera",
		BINPrice:      "120.00",
		BINCurrency:   "USD",
		OfferAmount:   "95.50",
		OfferCurrency: "USD",
		Quantity:      1,
		ExpiresOn:     "2025-03-01 12:00 PM PST",
		Status:        "Pending",
		FetchedOn:     time.Date(2025, 2, 27, 10, 0, 0, 0, time.UTC),
		ResponseState: "open",
	}
}

func (s *OfferHandlerTestSuite) TestList() {
	s.Run("success: filters are passed through with default limit", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), queries.ListFilter{State: "open", SKU: "AB-12", Limit: 100}).
			Return([]*queries.OfferView{sampleView("1"), sampleView("2")}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers?state=open&sku=AB-12", nil)

		var body resdto.OfferListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(2, body.Count)
		s.Equal("1", body.Offers[0].OfferID)
		s.Equal("95.50", body.Offers[0].OfferAmount)
	})

	s.Run("success: empty store returns an empty list", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers", nil)

		var body resdto.OfferListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(0, body.Count)
		s.NotNil(body.Offers)
	})

	cases := []struct {
		name  string
		query string
	}{
		{name: "unknown state", query: "?state=pending"},
		{name: "limit not a number", query: "?limit=ten"},
		{name: "limit too large", query: "?limit=5000"},
	}
	for _, tc := range cases {
		s.Run("error: "+tc.name, func() {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers"+tc.query, nil)
			httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid query")
		})
	}

	s.Run("error: store failure returns 500", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Failed to list offers")
	})
}

func (s *OfferHandlerTestSuite) TestGet() {
	s.Run("success", func() {
		s.mockQueries.EXPECT().Get(gomock.Any(), "500001").Return(sampleView("500001"), nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers/500001", nil)

		var body resdto.OfferResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("500001", body.OfferID)
		s.Equal("open", body.ResponseState)
	})

	s.Run("error: unknown offer returns 404", func() {
		notFound := infra.RepositoryError{Kind: infra.KindNotFound}
		s.mockQueries.EXPECT().Get(gomock.Any(), "missing").Return(nil, notFound)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers/missing", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Offer not found")
	})

	s.Run("error: contention returns 503", func() {
		s.mockQueries.EXPECT().Get(gomock.Any(), "500001").Return(nil, errs.Mark(errors.New("database is locked"), errs.ErrStoreContention))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/offers/500001", nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "busy")
	})
}
