package api

import (
	"errors"
	"net/http"

	resdto "offer-relay/internal/handler/dto/response"
	"offer-relay/internal/handler/httperr"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type CycleHandler struct {
	ingestion    commands.IngestionPipeline
	notification commands.NotificationDispatcher
}

func NewCycleHandler(ingestion commands.IngestionPipeline, notification commands.NotificationDispatcher) *CycleHandler {
	return &CycleHandler{ingestion: ingestion, notification: notification}
}

// @Summary Run ingestion
// @Description Fetch every offer page and merge the new offers into the store
// @Tags cycles
// @Produce json
// @Success 200 {object} resdto.IngestionCycleResponse
// @Failure 409 {object} httperr.Response
// @Router /api/cycles/ingestion [post]
func (h *CycleHandler) RunIngestion(c *gin.Context) {
	summary, err := h.ingestion.RunCycle(c.Request.Context())
	if err != nil {
		abortCycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromIngestionSummary(summary))
}

// @Summary Run notification
// @Description Alert mapped channels about offers nobody has seen yet
// @Tags cycles
// @Produce json
// @Success 200 {object} resdto.NotificationCycleResponse
// @Failure 409 {object} httperr.Response
// @Router /api/cycles/notification [post]
func (h *CycleHandler) RunNotification(c *gin.Context) {
	summary, err := h.notification.RunCycle(c.Request.Context())
	if err != nil {
		abortCycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromNotificationSummary(summary))
}

func abortCycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrCycleInProgress):
		httperr.AbortWithError(c, http.StatusConflict, err, "Cycle already in progress", nil)
	case errors.Is(err, errs.ErrStoreContention):
		httperr.AbortWithError(c, http.StatusServiceUnavailable, err, "Offer store is busy", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Cycle failed", nil)
	}
}
