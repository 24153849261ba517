package api

import (
	"errors"
	"net/http"

	reqdto "offer-relay/internal/handler/dto/request"
	resdto "offer-relay/internal/handler/dto/response"
	"offer-relay/internal/handler/httperr"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	q queries.OfferQueries
}

func NewOfferHandler(q queries.OfferQueries) *OfferHandler {
	return &OfferHandler{q: q}
}

// @Summary List offers
// @Description List stored offers, oldest first
// @Tags offers
// @Produce json
// @Param state query string false "Response state" Enums(open, accepted, declined, countered, unavailable)
// @Param sku query string false "Exact SKU"
// @Param limit query int false "Maximum number of offers" default(100)
// @Success 200 {object} resdto.OfferListResponse
// @Failure 400 {object} httperr.Response
// @Router /api/offers [get]
func (h *OfferHandler) List(c *gin.Context) {
	var req reqdto.ListOffersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}
	views, err := h.q.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		if errors.Is(err, queries.ErrInvalidStateFilter) {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid state filter", nil)
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to list offers", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromOfferViews(views))
}

// @Summary Get offer
// @Description Get one stored offer by its upstream offer ID
// @Tags offers
// @Produce json
// @Param id path string true "Offer ID"
// @Success 200 {object} resdto.OfferResponse
// @Failure 404 {object} httperr.Response
// @Router /api/offers/{id} [get]
func (h *OfferHandler) Get(c *gin.Context) {
	view, err := h.q.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrOfferNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "Offer not found", nil)
		case errors.Is(err, errs.ErrStoreContention):
			httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Offer store is busy", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Failed to load offer", nil)
		}
		return
	}
	c.JSON(http.StatusOK, resdto.FromOfferView(view))
}
