package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

type AnalyticsService interface {
	ABC(ctx context.Context, filter domain.AnalysisFilter) ([]planning.ABCItem, error)
	XYZ(ctx context.Context, filter domain.AnalysisFilter) ([]planning.XYZItem, error)
	Matrix(ctx context.Context, filter domain.AnalysisFilter) (*service.MatrixReport, error)
	Velocity(ctx context.Context, filter domain.AnalysisFilter) ([]service.ProductPerformance, error)
	Seasonality(ctx context.Context, productID int64) (planning.SeasonalProfile, bool, error)
}

type AnalyticsHandler struct {
	service AnalyticsService
}

func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

type analysisQuery struct {
	AnalysisDays int    `form:"analysis_days" validate:"omitempty,min=7,max=730"`
	Cell         string `form:"cell" validate:"omitempty,len=2"`
}

// parseAnalysisFilter binds the shared analysis query. It writes the 400
// itself and returns false on bad input.
func parseAnalysisFilter(c *gin.Context) (domain.AnalysisFilter, bool) {
	var q analysisQuery
	if !readAndValidate(c, &q, bindQuery) {
		return domain.AnalysisFilter{}, false
	}
	ids, err := parseInt64List(c, "product_ids")
	if err != nil {
		badQuery(c, err)
		return domain.AnalysisFilter{}, false
	}
	return domain.AnalysisFilter{
		AnalysisDays: q.AnalysisDays,
		ProductIDs:   ids,
		Cell:         q.Cell,
	}, true
}

func (h *AnalyticsHandler) ABC(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return
	}
	items, err := h.service.ABC(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to run abc analysis")
		return
	}

	counts := map[planning.ABCClass]int{planning.ClassA: 0, planning.ClassB: 0, planning.ClassC: 0}
	for _, it := range items {
		counts[it.Class]++
	}
	c.JSON(http.StatusOK, gin.H{
		"products": items,
		"summary":  counts,
	})
}

func (h *AnalyticsHandler) XYZ(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return
	}
	items, err := h.service.XYZ(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to run xyz analysis")
		return
	}

	counts := map[planning.XYZClass]int{planning.ClassX: 0, planning.ClassY: 0, planning.ClassZ: 0}
	for _, it := range items {
		counts[it.Class]++
	}
	c.JSON(http.StatusOK, gin.H{
		"products": items,
		"summary":  counts,
	})
}

func (h *AnalyticsHandler) Matrix(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return
	}
	report, err := h.service.Matrix(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to build abc-xyz matrix")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) Velocity(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return
	}
	items, err := h.service.Velocity(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to run velocity analysis")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}

func (h *AnalyticsHandler) Seasonality(c *gin.Context) {
	id, ok := parseIDParam(c, "product_id")
	if !ok {
		return
	}
	profile, found, err := h.service.Seasonality(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "failed to analyse seasonality")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sales history for product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id":  id,
		"seasonality": profile,
	})
}
