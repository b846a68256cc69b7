package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/velorize/backend-go/internal/planning"
	"github.com/andresuchdata/velorize/backend-go/internal/service"
)

func optimizationRouter(opt *stubOptimization, recs *stubRecommendations) *gin.Engine {
	h := NewOptimizationHandler(opt, recs)
	r := newTestEngine()
	r.POST("/eoq/calculate", h.CalculateEOQ)
	r.POST("/reorder-point/calculate", h.CalculateReorderPoint)
	r.GET("/eoq", h.EOQ)
	r.GET("/reorder-points", h.ReorderPoints)
	r.GET("/abc-xyz", h.Policies)
	r.GET("/recommendations", h.Recommendations)
	return r
}

func TestCalculateEOQ(t *testing.T) {
	r := optimizationRouter(&stubOptimization{}, &stubRecommendations{})

	w, payload := perform(t, r, http.MethodPost, "/eoq/calculate",
		`{"annual_demand":1000,"ordering_cost":100,"holding_cost":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	result, _ := payload["result"].(map[string]interface{})
	if result["eoq"] != 200.0 || result["orders_per_year"] != 5.0 {
		t.Errorf("result = %v", result)
	}

	w, payload = perform(t, r, http.MethodPost, "/eoq/calculate", `{"annual_demand":1000,"ordering_cost":100}`)
	if w.Code != http.StatusBadRequest || firstErrorCode(payload) != "ERR_GT" {
		t.Errorf("missing holding cost: status = %d, code = %q", w.Code, firstErrorCode(payload))
	}
}

func TestCalculateReorderPoint(t *testing.T) {
	r := optimizationRouter(&stubOptimization{}, &stubRecommendations{})

	w, payload := perform(t, r, http.MethodPost, "/reorder-point/calculate",
		`{"lead_time_days":5,"daily_demand":10,"demand_std_dev":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	input, _ := payload["input"].(map[string]interface{})
	result, _ := payload["result"].(map[string]interface{})
	if input["service_level"] != 0.95 {
		t.Errorf("service level = %v, want default 0.95", input["service_level"])
	}
	if result["reorder_point"] != 50.0 || result["safety_stock"] != 0.0 {
		t.Errorf("result = %v", result)
	}

	w, _ = perform(t, r, http.MethodPost, "/reorder-point/calculate",
		`{"lead_time_days":5,"daily_demand":10,"service_level":1.2}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("service level 1.2 status = %d, want 400", w.Code)
	}
}

func TestReorderPointsQuery(t *testing.T) {
	opt := &stubOptimization{rops: []service.ProductReorderPoint{
		{ProductID: 1, NeedsReorder: true},
		{ProductID: 2},
	}}
	w, payload := perform(t, optimizationRouter(opt, &stubRecommendations{}), http.MethodGet,
		"/reorder-points?service_level=0.9&analysis_days=30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if opt.serviceLevel != 0.9 || opt.filter.AnalysisDays != 30 {
		t.Errorf("service level = %v, days = %d", opt.serviceLevel, opt.filter.AnalysisDays)
	}
	if payload["needs_reorder"] != 1.0 || payload["total_products"] != 2.0 {
		t.Errorf("payload = %v", payload)
	}
}

func TestPoliciesStatusSummary(t *testing.T) {
	w, payload := perform(t, optimizationRouter(&stubOptimization{}, &stubRecommendations{}), http.MethodGet, "/abc-xyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	byStatus, _ := payload["by_status"].(map[string]interface{})
	if len(byStatus) != 4 || byStatus[string(planning.StockCritical)] != 0.0 {
		t.Errorf("by_status = %v", byStatus)
	}
}

func TestRecommendationsQuery(t *testing.T) {
	recs := &stubRecommendations{}
	r := optimizationRouter(&stubOptimization{}, recs)

	w, _ := perform(t, r, http.MethodGet, "/recommendations?urgency=critical&limit=5&product_ids=8", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if recs.filter.Urgency != "critical" || recs.filter.Limit != 5 || len(recs.filter.ProductIDs) != 1 {
		t.Errorf("filter = %+v", recs.filter)
	}

	w, payload := perform(t, r, http.MethodGet, "/recommendations?urgency=soon", "")
	if w.Code != http.StatusBadRequest || firstErrorCode(payload) != "ERR_ONEOF" {
		t.Errorf("bad urgency: status = %d, code = %q", w.Code, firstErrorCode(payload))
	}
}
