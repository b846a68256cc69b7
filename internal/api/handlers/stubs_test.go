package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/domain"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

type stubForecasts struct {
	preview      service.PreviewRequest
	previewErr   error
	generateIDs  []int64
	report       *pipeline.RunReport
	filter       domain.ForecastFilter
	deleteErr    error
	accuracyFrom time.Time
	accuracyTo   time.Time
	accuracyID   *int64
}

func (s *stubForecasts) Preview(req service.PreviewRequest) ([]planning.ForecastResult, error) {
	s.preview = req
	if s.previewErr != nil {
		return nil, s.previewErr
	}
	return make([]planning.ForecastResult, req.Horizon), nil
}

func (s *stubForecasts) Generate(ctx context.Context, ids []int64) (*pipeline.RunReport, error) {
	s.generateIDs = ids
	if s.report != nil {
		return s.report, nil
	}
	return &pipeline.RunReport{Pipeline: "forecast", Status: pipeline.StatusCompleted, Total: len(ids)}, nil
}

func (s *stubForecasts) List(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, int, error) {
	s.filter = filter
	return nil, 0, nil
}

func (s *stubForecasts) Deactivate(ctx context.Context, id int64) error {
	return s.deleteErr
}

func (s *stubForecasts) Accuracy(ctx context.Context, from, to time.Time, productID *int64) (planning.AccuracyReport, error) {
	s.accuracyFrom, s.accuracyTo, s.accuracyID = from, to, productID
	return planning.AccuracyReport{}, nil
}

type stubAnalytics struct {
	filter    domain.AnalysisFilter
	abc       []planning.ABCItem
	found     bool
	matrixErr error
}

func (s *stubAnalytics) ABC(ctx context.Context, filter domain.AnalysisFilter) ([]planning.ABCItem, error) {
	s.filter = filter
	return s.abc, nil
}

func (s *stubAnalytics) XYZ(ctx context.Context, filter domain.AnalysisFilter) ([]planning.XYZItem, error) {
	s.filter = filter
	return nil, nil
}

func (s *stubAnalytics) Matrix(ctx context.Context, filter domain.AnalysisFilter) (*service.MatrixReport, error) {
	s.filter = filter
	if s.matrixErr != nil {
		return nil, s.matrixErr
	}
	return &service.MatrixReport{AnalysisDays: filter.AnalysisDays}, nil
}

func (s *stubAnalytics) Velocity(ctx context.Context, filter domain.AnalysisFilter) ([]service.ProductPerformance, error) {
	s.filter = filter
	return nil, nil
}

func (s *stubAnalytics) Seasonality(ctx context.Context, productID int64) (planning.SeasonalProfile, bool, error) {
	return planning.SeasonalProfile{PeakMonth: "December"}, s.found, nil
}

type stubOptimization struct {
	filter       domain.AnalysisFilter
	serviceLevel float64
	rops         []service.ProductReorderPoint
}

func (s *stubOptimization) EOQ(ctx context.Context, filter domain.AnalysisFilter) ([]service.ProductEOQ, error) {
	s.filter = filter
	return nil, nil
}

func (s *stubOptimization) ReorderPoints(ctx context.Context, filter domain.AnalysisFilter, level float64) ([]service.ProductReorderPoint, error) {
	s.filter, s.serviceLevel = filter, level
	return s.rops, nil
}

func (s *stubOptimization) Policies(ctx context.Context, filter domain.AnalysisFilter, level float64) ([]service.ProductPolicy, error) {
	s.filter, s.serviceLevel = filter, level
	return nil, nil
}

type stubRecommendations struct {
	filter domain.RecommendationFilter
}

func (s *stubRecommendations) Recommendations(ctx context.Context, filter domain.RecommendationFilter) (*service.RecommendationReport, error) {
	s.filter = filter
	return &service.RecommendationReport{Recommendations: []planning.Recommendation{}}, nil
}

type stubMarketing struct {
	err      error
	from, to *time.Time
}

func (s *stubMarketing) EventImpact(ctx context.Context, id int64) (*service.EventImpactReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.EventImpactReport{Event: domain.MarketingEvent{ID: id}}, nil
}

func (s *stubMarketing) ImpactSummary(ctx context.Context, from, to *time.Time) (*service.ImpactSummaryReport, error) {
	s.from, s.to = from, to
	return &service.ImpactSummaryReport{}, nil
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func perform(t *testing.T, r http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var payload map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, payload
}

// firstErrorCode returns details[0].code of a validation response.
func firstErrorCode(payload map[string]interface{}) string {
	details, ok := payload["details"].([]interface{})
	if !ok || len(details) == 0 {
		return ""
	}
	first, _ := details[0].(map[string]interface{})
	code, _ := first["code"].(string)
	return code
}
