package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

type OptimizationService interface {
	EOQ(ctx context.Context, filter domain.AnalysisFilter) ([]service.ProductEOQ, error)
	ReorderPoints(ctx context.Context, filter domain.AnalysisFilter, serviceLevel float64) ([]service.ProductReorderPoint, error)
	Policies(ctx context.Context, filter domain.AnalysisFilter, serviceLevel float64) ([]service.ProductPolicy, error)
}

type RecommendationService interface {
	Recommendations(ctx context.Context, filter domain.RecommendationFilter) (*service.RecommendationReport, error)
}

type OptimizationHandler struct {
	optimization    OptimizationService
	recommendations RecommendationService
}

func NewOptimizationHandler(optimization OptimizationService, recommendations RecommendationService) *OptimizationHandler {
	return &OptimizationHandler{optimization: optimization, recommendations: recommendations}
}

type eoqRequest struct {
	AnnualDemand float64 `json:"annual_demand" validate:"gt=0"`
	OrderingCost float64 `json:"ordering_cost" validate:"gt=0"`
	HoldingCost  float64 `json:"holding_cost" validate:"gt=0"`
}

type reorderPointRequest struct {
	LeadTimeDays float64 `json:"lead_time_days" validate:"gt=0"`
	DailyDemand  float64 `json:"daily_demand" validate:"gte=0"`
	DemandStdDev float64 `json:"demand_std_dev" validate:"gte=0"`
	ServiceLevel float64 `json:"service_level" default:"0.95" validate:"gt=0,lt=1"`
}

type serviceLevelQuery struct {
	ServiceLevel float64 `form:"service_level" validate:"omitempty,gt=0,lt=1"`
}

type recommendationQuery struct {
	Urgency string `form:"urgency" validate:"omitempty,oneof=critical urgent normal"`
	Limit   int    `form:"limit" validate:"omitempty,min=1,max=1000"`
}

func (h *OptimizationHandler) CalculateEOQ(c *gin.Context) {
	var req eoqRequest
	if !readAndValidate(c, &req, bindJSON) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input":  req,
		"result": planning.EconomicOrderQuantity(req.AnnualDemand, req.OrderingCost, req.HoldingCost),
	})
}

func (h *OptimizationHandler) CalculateReorderPoint(c *gin.Context) {
	var req reorderPointRequest
	if !readAndValidate(c, &req, bindJSON) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"input":  req,
		"result": planning.ReorderPoint(req.LeadTimeDays, req.DailyDemand, req.DemandStdDev, req.ServiceLevel),
	})
}

func (h *OptimizationHandler) EOQ(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return
	}
	items, err := h.optimization.EOQ(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to compute order quantities")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}

func (h *OptimizationHandler) ReorderPoints(c *gin.Context) {
	filter, level, ok := h.parsePolicyQuery(c)
	if !ok {
		return
	}
	items, err := h.optimization.ReorderPoints(c.Request.Context(), filter, level)
	if err != nil {
		writeServiceError(c, err, "failed to compute reorder points")
		return
	}

	reorder := 0
	for _, it := range items {
		if it.NeedsReorder {
			reorder++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"products":       items,
		"needs_reorder":  reorder,
		"total_products": len(items),
	})
}

func (h *OptimizationHandler) Policies(c *gin.Context) {
	filter, level, ok := h.parsePolicyQuery(c)
	if !ok {
		return
	}
	items, err := h.optimization.Policies(c.Request.Context(), filter, level)
	if err != nil {
		writeServiceError(c, err, "failed to build stock policies")
		return
	}

	byStatus := map[planning.StockStatus]int{
		planning.StockCritical: 0,
		planning.StockLow:      0,
		planning.StockOptimal:  0,
		planning.StockExcess:   0,
	}
	for _, it := range items {
		byStatus[it.Status]++
	}
	c.JSON(http.StatusOK, gin.H{
		"products":  items,
		"by_status": byStatus,
	})
}

func (h *OptimizationHandler) Recommendations(c *gin.Context) {
	var q recommendationQuery
	if !readAndValidate(c, &q, bindQuery) {
		return
	}
	ids, err := parseInt64List(c, "product_ids")
	if err != nil {
		badQuery(c, err)
		return
	}

	report, err := h.recommendations.Recommendations(c.Request.Context(), domain.RecommendationFilter{
		Urgency:    q.Urgency,
		ProductIDs: ids,
		Limit:      q.Limit,
	})
	if err != nil {
		writeServiceError(c, err, "failed to build recommendations")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *OptimizationHandler) parsePolicyQuery(c *gin.Context) (domain.AnalysisFilter, float64, bool) {
	filter, ok := parseAnalysisFilter(c)
	if !ok {
		return filter, 0, false
	}
	var q serviceLevelQuery
	if !readAndValidate(c, &q, bindQuery) {
		return filter, 0, false
	}
	return filter, q.ServiceLevel, true
}
