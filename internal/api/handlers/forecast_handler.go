package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

const defaultAccuracyMonths = 6

type ForecastService interface {
	Preview(req service.PreviewRequest) ([]planning.ForecastResult, error)
	Generate(ctx context.Context, productIDs []int64) (*pipeline.RunReport, error)
	List(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error)
	Deactivate(ctx context.Context, id int64) error
	Accuracy(ctx context.Context, from, to time.Time, productID *int64) (planning.AccuracyReport, error)
}

type ForecastHandler struct {
	service ForecastService
	now     func() time.Time
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service, now: time.Now}
}

type previewParams struct {
	Window       int     `json:"window" validate:"omitempty,min=1"`
	Alpha        float64 `json:"alpha" validate:"omitempty,gt=0,lte=1"`
	SeasonLength int     `json:"season_length" validate:"omitempty,min=2"`
}

type previewRequest struct {
	Series  []float64     `json:"series" validate:"required,min=1"`
	Method  string        `json:"method" default:"auto"`
	Horizon int           `json:"horizon" default:"1" validate:"min=1"`
	Params  previewParams `json:"params"`
}

type generateRequest struct {
	ProductIDs []int64 `json:"product_ids" validate:"omitempty,dive,gt=0"`
}

type listForecastsQuery struct {
	Method   string `form:"method"`
	Status   string `form:"status" default:"active" validate:"oneof=active inactive all"`
	Page     int    `form:"page" default:"1" validate:"min=1"`
	PageSize int    `form:"page_size" default:"50" validate:"min=1,max=500"`
}

// Preview forecasts an explicit series. Nothing is read or stored.
func (h *ForecastHandler) Preview(c *gin.Context) {
	var req previewRequest
	if !readAndValidate(c, &req, bindJSON) {
		return
	}

	results, err := h.service.Preview(service.PreviewRequest{
		Series:  req.Series,
		Method:  req.Method,
		Horizon: req.Horizon,
		Params: planning.Params{
			Window:       req.Params.Window,
			Alpha:        req.Params.Alpha,
			SeasonLength: req.Params.SeasonLength,
		},
	})
	if err != nil {
		writeServiceError(c, err, "failed to compute forecast")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"method":      req.Method,
		"horizon":     req.Horizon,
		"data_points": len(req.Series),
		"forecasts":   results,
	})
}

// Generate runs the forecast pipeline synchronously and returns its run report.
func (h *ForecastHandler) Generate(c *gin.Context) {
	var req generateRequest
	if !readAndValidate(c, &req, bindJSON) {
		return
	}

	report, err := h.service.Generate(c.Request.Context(), req.ProductIDs)
	if err != nil {
		writeServiceError(c, err, "failed to generate forecasts")
		return
	}

	status := http.StatusOK
	if report.Status == pipeline.StatusFailed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, report)
}

func (h *ForecastHandler) List(c *gin.Context) {
	var q listForecastsQuery
	if !readAndValidate(c, &q, bindQuery) {
		return
	}
	ids, err := parseInt64List(c, "product_ids")
	if err != nil {
		badQuery(c, err)
		return
	}
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

	filter := domain.ForecastFilter{
		ProductIDs: ids,
		From:       from,
		To:         to,
		Method:     q.Method,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if q.Status != "all" {
		filter.Status = q.Status
	}

	forecasts, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "failed to list forecasts")
		return
	}
	if forecasts == nil {
		forecasts = []domain.DemandForecast{}
	}

	c.JSON(http.StatusOK, gin.H{
		"forecasts": forecasts,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

func (h *ForecastHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		writeServiceError(c, err, "failed to deactivate forecast")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "forecast deactivated", "id": id})
}

// Accuracy evaluates forecasts whose month falls in [from, to). The window
// defaults to the six months before the current one.
func (h *ForecastHandler) Accuracy(c *gin.Context) {
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
	ids, err := parseInt64List(c, "product_id")
	if err != nil {
		badQuery(c, err)
		return
	}

	now := h.now().UTC()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, -defaultAccuracyMonths, 0)
	if from != nil {
		start = *from
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to"})
		return
	}

	var productID *int64
	if len(ids) > 0 {
		productID = &ids[0]
	}

	report, err := h.service.Accuracy(c.Request.Context(), start, end, productID)
	if err != nil {
		writeServiceError(c, err, "failed to evaluate forecast accuracy")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":     start.Format(dateLayout),
		"to":       end.Format(dateLayout),
		"accuracy": report,
	})
}
