package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

type MarketingService interface {
	EventImpact(ctx context.Context, id int64) (*service.EventImpactReport, error)
	ImpactSummary(ctx context.Context, from, to *time.Time) (*service.ImpactSummaryReport, error)
}

type MarketingHandler struct {
	service MarketingService
}

func NewMarketingHandler(service MarketingService) *MarketingHandler {
	return &MarketingHandler{service: service}
}

func (h *MarketingHandler) EventImpact(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.service.EventImpact(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "failed to analyse event impact")
		return
	}
	c.JSON(http.StatusOK, report)
}

// ImpactSummary aggregates completed events overlapping the optional
// from/to range.
func (h *MarketingHandler) ImpactSummary(c *gin.Context) {
	from, err := parseOptionalDate(c, "from")
	if err != nil {
		badQuery(c, err)
		return
	}
	to, err := parseOptionalDate(c, "to")
	if err != nil {
		badQuery(c, err)
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return
	}

	report, err := h.service.ImpactSummary(c.Request.Context(), from, to)
	if err != nil {
		writeServiceError(c, err, "failed to summarise event impact")
		return
	}
	if report.Events == nil {
		report.Events = []service.EventImpactReport{}
	}
	c.JSON(http.StatusOK, report)
}
